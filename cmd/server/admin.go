package main

import (
	"errors"
	"fmt"

	"task-board-api/internal/auth"
	"task-board-api/internal/models"
	"task-board-api/internal/store"

	"github.com/spf13/cobra"
)

func memberCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Manage workspace members",
	}

	var username, password, workspace, displayName string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a member who can sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || password == "" || workspace == "" {
				return errors.New("--username, --password and --workspace are required")
			}
			cfg, db, err := setup()
			if err != nil {
				return err
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			dir := store.NewDirectory(db, cfg.Members.CacheTTL)
			m, err := dir.AddMember(cmd.Context(), models.Member{
				WorkspaceID:  workspace,
				Username:     username,
				DisplayName:  displayName,
				PasswordHash: hash,
			})
			if err != nil {
				return fmt.Errorf("add member: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), m.ID)
			return nil
		},
	}
	add.Flags().StringVarP(&username, "username", "u", "", "login name")
	add.Flags().StringVarP(&password, "password", "p", "", "login password")
	add.Flags().StringVarP(&workspace, "workspace", "w", "", "workspace id")
	add.Flags().StringVar(&displayName, "display-name", "", "name shown on task cards")

	cmd.AddCommand(add)
	return cmd
}

func projectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}

	var name, workspace string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a project board",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" || workspace == "" {
				return errors.New("--name and --workspace are required")
			}
			cfg, db, err := setup()
			if err != nil {
				return err
			}
			dir := store.NewDirectory(db, cfg.Members.CacheTTL)
			p, err := dir.AddProject(cmd.Context(), models.Project{WorkspaceID: workspace, Name: name})
			if err != nil {
				return fmt.Errorf("add project: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), p.ID)
			return nil
		},
	}
	add.Flags().StringVarP(&name, "name", "n", "", "project name")
	add.Flags().StringVarP(&workspace, "workspace", "w", "", "workspace id")

	cmd.AddCommand(add)
	return cmd
}
