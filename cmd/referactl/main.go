// cmd/referactl/main.go
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/refera-hq/refera/internal/authdir"
	"github.com/refera-hq/refera/internal/config"
	"github.com/refera-hq/refera/internal/model"
	"github.com/refera-hq/refera/internal/repository"
	"github.com/refera-hq/refera/internal/service"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	orgIDFlag   string
	roleFlag    string
	csvFlag     string
	orgNameFlag string
	orgSlugFlag string
	verbose     bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&orgIDFlag, "org", "o", "", "Organization ID or slug")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	inviteCmd.Flags().StringVarP(&roleFlag, "role", "r", string(model.RoleStaff), "Role to grant")
	bulkInviteCmd.Flags().StringVar(&csvFlag, "csv", "", "CSV file with email,role,display_name rows")
	createOrgCmd.Flags().StringVar(&orgNameFlag, "name", "", "Organization name")
	createOrgCmd.Flags().StringVar(&orgSlugFlag, "slug", "", "Organization slug")

	rootCmd.AddCommand(inviteCmd)
	rootCmd.AddCommand(bulkInviteCmd)
	rootCmd.AddCommand(membersCmd)
	rootCmd.AddCommand(orgsCmd)
	rootCmd.AddCommand(createOrgCmd)
	rootCmd.AddCommand(versionCmd)
}

var rootCmd = &cobra.Command{
	Use:   "referactl",
	Short: "referactl manages organization members and invitations",
	Long:  `referactl is an operator CLI for inviting members, bulk-loading rosters, and inspecting organizations.`,
}

var inviteCmd = &cobra.Command{
	Use:   "invite [email]",
	Short: "Invite or add one member",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svc, orgID := mustService()

		membership, err := svc.InviteOrAdd(context.Background(), service.InviteInput{
			OrganizationID: orgID,
			Email:          args[0],
			Role:           model.Role(roleFlag),
		})
		if err != nil {
			log.Fatalf("Failed to invite %s: %v", args[0], err)
		}

		if membership.IsPending() {
			fmt.Printf("Invitation sent to %s (role %s)\n", args[0], membership.Role)
		} else {
			fmt.Printf("Added %s as %s (status %s)\n", args[0], membership.Role, membership.Status)
		}
	},
}

var bulkInviteCmd = &cobra.Command{
	Use:   "bulk-invite",
	Short: "Invite members from a CSV file",
	Run: func(cmd *cobra.Command, args []string) {
		if csvFlag == "" {
			log.Fatal("CSV file is required (--csv)")
		}

		f, err := os.Open(csvFlag)
		if err != nil {
			log.Fatalf("Failed to open CSV: %v", err)
		}
		defer f.Close()

		rows, err := csv.NewReader(f).ReadAll()
		if err != nil {
			log.Fatalf("Failed to read CSV: %v", err)
		}

		var entries []service.BulkInviteEntry
		for _, row := range rows {
			if len(row) < 2 {
				continue
			}
			entry := service.BulkInviteEntry{Email: row[0], Role: model.Role(row[1])}
			if len(row) > 2 {
				entry.DisplayName = row[2]
			}
			entries = append(entries, entry)
		}

		svc, orgID := mustService()
		result, err := svc.BulkInvite(context.Background(), orgID, entries, nil)
		if err != nil {
			log.Fatalf("Bulk invite failed: %v", err)
		}

		fmt.Printf("Invited %d of %d entries\n", result.Succeeded, result.Total)
		for _, failure := range result.Failures {
			fmt.Printf("  row %d (%s): %s\n", failure.Index, failure.Email, failure.Message)
		}
	},
}

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "List organization members",
	Run: func(cmd *cobra.Command, args []string) {
		svc, orgID := mustService()

		views, total, err := svc.ListMembers(context.Background(), orgID, 0, 200)
		if err != nil {
			log.Fatalf("Failed to list members: %v", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ROLE\tSTATUS\tNAME\tINVITE EMAIL")
		for _, view := range views {
			name, inviteEmail := "-", "-"
			if view.Profile != nil {
				name = view.Profile.DisplayName
			}
			if view.Membership.InviteEmail != nil {
				inviteEmail = *view.Membership.InviteEmail
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", view.Membership.Role, view.Membership.Status, name, inviteEmail)
		}
		w.Flush()
		fmt.Printf("%d members total\n", total)
	},
}

var orgsCmd = &cobra.Command{
	Use:   "orgs",
	Short: "List organizations",
	Run: func(cmd *cobra.Command, args []string) {
		orgRepo := repository.NewOrganizationRepository(mustDB())

		orgs, err := orgRepo.FindAll(context.Background())
		if err != nil {
			log.Fatalf("Failed to list organizations: %v", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSLUG\tNAME")
		for _, org := range orgs {
			fmt.Fprintf(w, "%s\t%s\t%s\n", org.ID, org.Slug, org.Name)
		}
		w.Flush()
	},
}

var createOrgCmd = &cobra.Command{
	Use:   "create-org",
	Short: "Create an organization",
	Run: func(cmd *cobra.Command, args []string) {
		if orgNameFlag == "" || orgSlugFlag == "" {
			log.Fatal("Both --name and --slug are required")
		}

		orgRepo := repository.NewOrganizationRepository(mustDB())

		org := &model.Organization{Name: orgNameFlag, Slug: orgSlugFlag}
		if err := orgRepo.Create(context.Background(), org); err != nil {
			log.Fatalf("Failed to create organization: %v", err)
		}
		fmt.Printf("Created organization %s (%s)\n", org.Slug, org.ID)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("referactl 0.3.0")
	},
}

// mustDB opens the configured database, or exits.
func mustDB() *gorm.DB {
	cfg := config.Load()

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.User,
		cfg.Database.Password, cfg.Database.Name, cfg.Database.SSLMode,
		cfg.Database.SearchPath,
	)
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if verbose {
		gormCfg.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(postgres.Open(dsn), gormCfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	return db
}

// mustService wires a MemberService against the configured database and
// directory, resolving --org as a UUID or a slug, or exits.
func mustService() (*service.MemberService, uuid.UUID) {
	if orgIDFlag == "" {
		log.Fatal("Organization ID is required (--org)")
	}

	cfg := config.Load()
	db := mustDB()
	orgRepo := repository.NewOrganizationRepository(db)

	orgID, err := uuid.Parse(orgIDFlag)
	if err != nil {
		org, err := orgRepo.FindBySlug(context.Background(), orgIDFlag)
		if err != nil {
			log.Fatalf("Unknown organization %q: %v", orgIDFlag, err)
		}
		orgID = org.ID
	}

	directory := authdir.NewClient(&authdir.Config{
		BaseURL: cfg.Directory.BaseURL,
		APIKey:  cfg.Directory.APIKey,
	})

	svc := service.NewMemberService(
		repository.NewMembershipRepository(db),
		repository.NewProfileRepository(db),
		repository.NewInvitationRepository(db),
		orgRepo,
		directory,
		nil, // notifications are the API server's concern
		cfg,
	)
	return svc, orgID
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
