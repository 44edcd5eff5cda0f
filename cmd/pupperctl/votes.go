package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	votesCmd := &cobra.Command{Use: "votes", Short: "Wag and growl operations"}

	var voteUser, voteType string
	var removing bool
	castCmd := &cobra.Command{
		Use:   "cast DOG_ID",
		Short: "Cast or remove a wag/growl vote",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]interface{}{
				"userId":     voteUser,
				"voteType":   voteType,
				"isRemoving": removing,
			}
			data, err := doSend(http.MethodPost, "/dogs/"+args[0]+"/vote", payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	castCmd.Flags().StringVarP(&voteUser, "user", "u", "", "Voting user ID (required)")
	castCmd.Flags().StringVarP(&voteType, "type", "t", "wag", `Vote type: "wag" or "growl"`)
	castCmd.Flags().BoolVar(&removing, "remove", false, "Remove the existing vote instead of casting")
	_ = castCmd.MarkFlagRequired("user")
	votesCmd.AddCommand(castCmd)

	listCmd := &cobra.Command{
		Use:   "list USER_ID",
		Short: "List a user's votes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet("/users/" + args[0] + "/votes")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	votesCmd.AddCommand(listCmd)

	rootCmd.AddCommand(votesCmd)
}
