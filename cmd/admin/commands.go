package main

import (
	"fmt"
	"strings"

	"kiitcms/backend/internal/access"
	"kiitcms/backend/internal/api/handler"
	"kiitcms/backend/internal/complaint"
	"kiitcms/backend/internal/config"
	"kiitcms/backend/internal/models"
	"kiitcms/backend/internal/query"

	"github.com/spf13/cobra"
)

var (
	profileID     string
	profileName   string
	profileRollNo string
)

func newProfileCmd(open storeOpener) *cobra.Command {
	profile := &cobra.Command{
		Use:   "profile",
		Short: "Manage user profiles",
	}

	set := &cobra.Command{
		Use:   "set <email> <role> [department]",
		Short: "Create or update a profile",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			role := models.Role(strings.ToLower(args[1]))
			if !role.Valid() {
				return fmt.Errorf("unknown role %q (student, department, admin)", args[1])
			}
			var dept string
			if len(args) == 3 {
				dept = args[2]
				if !config.IsDepartment(dept) {
					return fmt.Errorf("unknown department %q, expected one of: %s", dept, strings.Join(config.DepartmentNames(), ", "))
				}
			}
			if role == models.RoleDepartment {
				named, ok := access.DepartmentFromEmail(args[0])
				switch {
				case !ok && dept == "":
					return fmt.Errorf("%s does not name a department, pass one explicitly", args[0])
				case ok && dept != "" && dept != named:
					return fmt.Errorf("%s already names department %s", args[0], named)
				}
			}

			s, err := open(cmd.Context())
			if err != nil {
				return err
			}
			p := &models.UserProfile{
				ID:          profileID,
				Email:       args[0],
				Role:        role,
				Department:  dept,
				DisplayName: profileName,
				RollNo:      profileRollNo,
			}
			if err := s.SaveProfile(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", p.ID, p.Email, p.Role, access.BoundDepartment(p, p.Email))
			return nil
		},
	}
	set.Flags().StringVar(&profileID, "id", "", "identity provider subject, generated when empty")
	set.Flags().StringVar(&profileName, "name", "", "display name")
	set.Flags().StringVar(&profileRollNo, "roll", "", "roll number")

	profile.AddCommand(set)
	return profile
}

func newTokenCmd(cfg *config.Config, open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "token <email>",
		Short: "Issue an API token for an existing profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET is not set")
			}
			s, err := open(cmd.Context())
			if err != nil {
				return err
			}
			p, err := s.GetProfileByEmail(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("lookup %s: %w", args[0], err)
			}
			token, err := handler.NewAuthenticator(cfg.JWTSecret, nil).IssueToken(access.Identity{
				ID:          p.ID,
				Email:       p.Email,
				DisplayName: p.DisplayName,
				RollNo:      p.RollNo,
				Role:        p.Role,
				Verified:    true,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}

// cliAdmin is the caller bulk changes are made as.
var cliAdmin = access.Identity{ID: "admin-cli", DisplayName: "Administrator", Role: models.RoleAdmin, Verified: true}

func newBulkStatusCmd(open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "bulk-status <status> <id>...",
		Short: "Move complaints to a status in one all-or-nothing write",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context())
			if err != nil {
				return err
			}
			svc := complaint.NewService(s, nil, nil)
			views, err := svc.BulkUpdateStatus(cmd.Context(), access.NewRoleContext(cliAdmin), args[1:], models.Status(args[0]))
			if err != nil {
				return err
			}
			for _, v := range views {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", v.ID, v.Status)
			}
			return nil
		},
	}
}

func newStatsCmd(open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <email>",
		Short: "Show the complaint counts a profile sees",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context())
			if err != nil {
				return err
			}
			p, err := s.GetProfileByEmail(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("lookup %s: %w", args[0], err)
			}
			rc, err := access.NewResolver(s).Resolve(cmd.Context(), access.Identity{
				ID: p.ID, Email: p.Email, Role: p.Role, Verified: true,
			})
			if err != nil {
				return err
			}
			st, err := query.NewStatsAggregator(s).Compute(cmd.Context(), rc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scope\t%s\ntotal\t%d\npending\t%d\nresolved\t%d\n", rc.Key(), st.Total, st.Pending, st.Resolved)
			return nil
		},
	}
}
