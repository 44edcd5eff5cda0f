package main

import (
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	dogsCmd := &cobra.Command{Use: "dogs", Short: "Dog listing operations"}

	// create
	var shelter, city, state, name, species, description, birthday, color, userID string
	var weight float64
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Post a dog for adoption",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]interface{}{
				"shelter":     shelter,
				"city":        city,
				"state":       state,
				"name":        name,
				"species":     species,
				"description": description,
				"birthday":    birthday,
				"weight":      weight,
				"color":       color,
			}
			if userID != "" {
				payload["createdBy"] = userID
			}
			data, err := doSend(http.MethodPost, "/dogs", payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	createCmd.Flags().StringVar(&shelter, "shelter", "", "Shelter name (required)")
	createCmd.Flags().StringVar(&city, "city", "", "City (required)")
	createCmd.Flags().StringVar(&state, "state", "", "Two-letter state code (required)")
	createCmd.Flags().StringVarP(&name, "name", "n", "", "Dog name (required)")
	createCmd.Flags().StringVar(&species, "species", "Labrador Retriever", "Species")
	createCmd.Flags().StringVarP(&description, "description", "d", "", "Description (required)")
	createCmd.Flags().StringVarP(&birthday, "birthday", "b", "", "Birthday YYYY-MM-DD (required)")
	createCmd.Flags().Float64VarP(&weight, "weight", "w", 0, "Weight in pounds (required)")
	createCmd.Flags().StringVarP(&color, "color", "c", "", "Coat color (required)")
	createCmd.Flags().StringVarP(&userID, "user", "u", "", "Posting user ID (required)")
	for _, f := range []string{"shelter", "city", "state", "name", "description", "birthday", "weight", "color", "user"} {
		_ = createCmd.MarkFlagRequired(f)
	}
	dogsCmd.AddCommand(createCmd)

	// list
	var fState, fColor, fMinWeight, fMaxWeight, fMinAge, fMaxAge string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List adoptable dogs",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			for k, v := range map[string]string{
				"state": fState, "color": fColor,
				"minWeight": fMinWeight, "maxWeight": fMaxWeight,
				"minAge": fMinAge, "maxAge": fMaxAge,
			} {
				if v != "" {
					q.Set(k, v)
				}
			}
			path := "/dogs"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}
			data, err := doGet(path)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	listCmd.Flags().StringVar(&fState, "state", "", "Filter by state")
	listCmd.Flags().StringVar(&fColor, "color", "", "Filter by color")
	listCmd.Flags().StringVar(&fMinWeight, "min-weight", "", "Minimum weight")
	listCmd.Flags().StringVar(&fMaxWeight, "max-weight", "", "Maximum weight")
	listCmd.Flags().StringVar(&fMinAge, "min-age", "", "Minimum age in years")
	listCmd.Flags().StringVar(&fMaxAge, "max-age", "", "Maximum age in years")
	dogsCmd.AddCommand(listCmd)

	// delete
	var deleteUser string
	deleteCmd := &cobra.Command{
		Use:   "delete DOG_ID",
		Short: "Remove a dog you posted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if deleteUser == "" {
				return fmt.Errorf("--user required")
			}
			data, err := doSend(http.MethodDelete, "/dogs/"+args[0], map[string]interface{}{"userId": deleteUser})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	deleteCmd.Flags().StringVarP(&deleteUser, "user", "u", "", "Posting user ID (required)")
	_ = deleteCmd.MarkFlagRequired("user")
	dogsCmd.AddCommand(deleteCmd)

	rootCmd.AddCommand(dogsCmd)
}
