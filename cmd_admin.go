package main

import (
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"justanote/pkg/crypto"
	"justanote/pkg/errors"
	"justanote/pkg/models"
	"justanote/pkg/services"
	"justanote/pkg/storage"
	"justanote/pkg/types"
)

var (
	faint  = color.New(color.Faint).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

var queueStatus string

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "List notes waiting for admin delivery",
	Args:  cobra.NoArgs,
	RunE:  runQueue,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show note counters",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var deliverCmd = &cobra.Command{
	Use:   "deliver <id>...",
	Short: "Mark notes delivered and notify their senders",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDeliver,
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write a zip archive of every note",
	Args:  cobra.NoArgs,
	RunE:  runBackup,
}

var (
	printHash  bool
	verifyOnly bool
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Set the admin password",
	Long: `Prompts for the admin password and stores its PBKDF2 hash in the
configured password hash file. With --verify the entered password is checked
against the stored hash instead; a legacy SHA-256 hash is upgraded on success.`,
	Args: cobra.NoArgs,
	RunE: runHashPassword,
}

func init() {
	queueCmd.Flags().StringVar(&queueStatus, "status", "pending", "pending, delivered or all")
	hashPasswordCmd.Flags().BoolVar(&printHash, "print", false, "print the hash instead of writing it")
	hashPasswordCmd.Flags().BoolVar(&verifyOnly, "verify", false, "check a password against the stored hash")
}

func newAdminService() (*services.AdminService, storage.Store, error) {
	cfg, store, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	return services.NewAdminService(store, newNotifier(cfg), cfg.Server.BaseURL, logger), store, nil
}

func runQueue(cmd *cobra.Command, args []string) error {
	status := queueStatus
	if status == "all" {
		status = ""
	}
	filter, err := storage.ParseStatusFilter(status)
	if err != nil {
		return err
	}

	admin, store, err := newAdminService()
	if err != nil {
		return err
	}
	defer store.Close()

	items, err := admin.Queue(cmd.Context(), filter)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println(faint("Queue is empty"))
		return nil
	}
	for _, item := range items {
		fmt.Print(formatQueueItem(item))
	}
	fmt.Printf("\n%s\n", faint(fmt.Sprintf("%d note(s)", len(items))))
	return nil
}

func formatQueueItem(item types.QueueItem) string {
	var sb strings.Builder

	state := yellow(item.Status)
	if item.Status == string(models.StatusDelivered) {
		state = green(item.Status)
	}
	fmt.Fprintf(&sb, "  %s  %s  %s\n", faint(item.ID), bold(item.RecipientName), state)
	if item.RecipientInstagram != "" {
		fmt.Fprintf(&sb, "            %s %s\n", faint("Instagram:"), cyan("@"+item.RecipientInstagram))
	}
	if created, err := time.Parse(time.RFC3339, item.CreatedAt); err == nil {
		fmt.Fprintf(&sb, "            %s %s\n", faint("Created:"), faint(humanize.Time(created)))
	}
	fmt.Fprintf(&sb, "            %s %s\n", faint("Link:"), item.Link)
	return sb.String()
}

func runStats(cmd *cobra.Command, args []string) error {
	admin, store, err := newAdminService()
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := admin.Stats(cmd.Context())
	if err != nil {
		return err
	}
	rows := []struct {
		label string
		value int
	}{
		{"Total notes", stats.Total},
		{"Pending", stats.Pending},
		{"Delivered", stats.Delivered},
		{"Created today", stats.CreatedToday},
		{"Self delivery", stats.Self},
		{"Admin delivery", stats.Admin},
		{"Total views", stats.TotalViews},
	}
	for _, r := range rows {
		fmt.Printf("  %-16s %s\n", faint(r.label), bold(humanize.Comma(int64(r.value))))
	}
	return nil
}

func runDeliver(cmd *cobra.Command, args []string) error {
	admin, store, err := newAdminService()
	if err != nil {
		return err
	}
	defer store.Close()

	failed := 0
	for _, id := range args {
		_, changed, err := admin.MarkDelivered(cmd.Context(), id)
		switch {
		case err != nil:
			failed++
			fmt.Printf("  %s %s\n", color.RedString("✗"), errors.ToFrontendError(err).Message+" ("+id+")")
		case changed:
			fmt.Printf("  %s %s delivered\n", green("✓"), id)
		default:
			fmt.Printf("  %s %s was already delivered\n", faint("•"), id)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d note(s) could not be delivered", failed)
	}
	return nil
}

func runBackup(cmd *cobra.Command, args []string) error {
	cfg, store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	path, err := storage.Backup(cmd.Context(), store, cfg.Storage.BackupDir)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s (%s)\n", green("✓"), path, humanize.Bytes(uint64(info.Size())))
	return nil
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(pw), nil
}

func runHashPassword(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	password, err := readPassword("Admin password: ")
	if err != nil {
		return err
	}

	if verifyOnly {
		if cfg.Admin.PasswordHash == "" {
			return fmt.Errorf("no admin password hash is configured")
		}
		if !crypto.VerifyPassword(password, cfg.Admin.PasswordHash) {
			return fmt.Errorf("password does not match")
		}
		fmt.Println(green("✓"), "password matches")
		ph, err := crypto.ParsePasswordHash(cfg.Admin.PasswordHash)
		if err != nil || ph.Method != crypto.MethodSHA256 {
			return err
		}
		fmt.Println(yellow("legacy SHA-256 hash found, upgrading to PBKDF2"))
	} else {
		validator := errors.NewValidator()
		if result := validator.ValidatePassword(password); !result.IsValid {
			return result.Err()
		}
		confirm, err := readPassword("Confirm password: ")
		if err != nil {
			return err
		}
		if result := validator.ValidatePasswordMatch(password, confirm); !result.IsValid {
			return result.Err()
		}
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return err
	}
	if printHash {
		fmt.Println(hash)
		return nil
	}
	if err := cfg.SavePasswordHash(hash); err != nil {
		return err
	}
	fmt.Printf("%s password hash written to %s\n", green("✓"), cfg.Admin.PasswordHashPath)
	return nil
}
