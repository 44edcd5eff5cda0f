package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	appsCmd := &cobra.Command{Use: "applications", Short: "Adoption application operations"}

	// submit
	var dogID, shelter, name, email, phone, address, living, adopter string
	var hasKids bool
	submitCmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit an adoption application",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]interface{}{
				"dogId":       dogID,
				"shelter":     shelter,
				"name":        name,
				"email":       email,
				"phone":       phone,
				"address":     address,
				"livingSpace": living,
				"hasKids":     hasKids,
			}
			if adopter != "" {
				payload["adopterId"] = adopter
			}
			data, err := doSend(http.MethodPost, "/applications", payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	submitCmd.Flags().StringVar(&dogID, "dog", "", "Dog ID (required)")
	submitCmd.Flags().StringVar(&shelter, "shelter", "", "Shelter name (required)")
	submitCmd.Flags().StringVarP(&name, "name", "n", "", "Applicant name (required)")
	submitCmd.Flags().StringVarP(&email, "email", "e", "", "Applicant email (required)")
	submitCmd.Flags().StringVar(&phone, "phone", "", "Applicant phone (required)")
	submitCmd.Flags().StringVar(&address, "address", "", "Applicant address (required)")
	submitCmd.Flags().StringVar(&living, "living-space", "", "Living space description (required)")
	submitCmd.Flags().BoolVar(&hasKids, "has-kids", false, "Household has children")
	submitCmd.Flags().StringVarP(&adopter, "user", "u", "", "Adopter user ID")
	for _, f := range []string{"dog", "shelter", "name", "email", "phone", "address", "living-space"} {
		_ = submitCmd.MarkFlagRequired(f)
	}
	appsCmd.AddCommand(submitCmd)

	// list
	var shelterUser string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List applications (all, or for one shelter owner)",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/applications"
			if shelterUser != "" {
				path = "/users/" + shelterUser + "/applications"
			}
			data, err := doGet(path)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	listCmd.Flags().StringVarP(&shelterUser, "user", "u", "", "Shelter owner user ID")
	appsCmd.AddCommand(listCmd)

	// approve / reject
	var actor string
	decide := func(status string) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if actor == "" {
				return fmt.Errorf("--user required")
			}
			payload := map[string]interface{}{"status": status, "userId": actor}
			data, err := doSend(http.MethodPut, "/applications/"+args[0], payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		}
	}
	approveCmd := &cobra.Command{
		Use:   "approve APPLICATION_ID",
		Short: "Approve an application",
		Args:  cobra.ExactArgs(1),
		RunE:  decide("approved"),
	}
	rejectCmd := &cobra.Command{
		Use:   "reject APPLICATION_ID",
		Short: "Reject an application",
		Args:  cobra.ExactArgs(1),
		RunE:  decide("rejected"),
	}
	for _, c := range []*cobra.Command{approveCmd, rejectCmd} {
		c.Flags().StringVarP(&actor, "user", "u", "", "Deciding user ID, must own the dog (required)")
		_ = c.MarkFlagRequired("user")
		appsCmd.AddCommand(c)
	}

	rootCmd.AddCommand(appsCmd)
}
