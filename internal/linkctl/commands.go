package linkctl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/taglink/internal/filex"
	"github.com/dmitrijs2005/taglink/internal/netx"
	"github.com/dmitrijs2005/taglink/internal/server/services"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type backendRunner func(cmd *cobra.Command, fn func(Backend) error) error

var errEmptyPassword = errors.New("password must not be empty")

var httpClient = &http.Client{Timeout: time.Minute}

// isTerminal and readSecret are replaced in tests.
var (
	isTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
	readSecret = func() ([]byte, error) { return term.ReadPassword(int(os.Stdin.Fd())) }
)

func newMigrateCmd(run backendRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(b Backend) error {
				if err := b.Migrate(cmd.Context()); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}
}

func newAccountCmd(run backendRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage API accounts",
	}

	cmd.AddCommand(
		newAccountAddCmd(run),
	)

	return cmd
}

func newAccountAddCmd(run backendRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "add <username>",
		Short: "Create an account; the password is read from the terminal or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			return run(cmd, func(b Backend) error {
				acc, err := b.Register(cmd.Context(), args[0], password)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", acc.ID, acc.Username)
				return nil
			})
		},
	}
}

func newAuditCmd(run backendRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Work with the audit log",
	}

	cmd.AddCommand(
		newAuditArchiveCmd(run),
	)

	return cmd
}

func newAuditArchiveCmd(run backendRunner) *cobra.Command {
	var since, out string

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Upload audit entries to object storage and print a download URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var from time.Time
			if since != "" {
				t, err := time.Parse(time.RFC3339, since)
				if err != nil {
					return fmt.Errorf("--since: %w", err)
				}
				from = t
			}
			return run(cmd, func(b Backend) error {
				a, err := b.Archive(cmd.Context(), from)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d entries\n%s\n", a.Key, a.Entries, a.URL)
				if out == "" {
					return nil
				}
				path, err := download(cmd.Context(), a, out)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "saved to %s\n", path)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "RFC 3339 lower bound (default: everything)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "also download the archive into this directory")

	return cmd
}

// download fetches the archive through its presigned URL into dir.
func download(ctx context.Context, a *services.Archive, dir string) (string, error) {
	dir, err := filex.EnsureDir(dir)
	if err != nil {
		return "", err
	}

	f, err := filex.CreateNew(dir, a.Key)
	if err != nil {
		return "", err
	}

	if _, err := netx.DownloadPresignedURL(ctx, httpClient, a.URL, f); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return f.Name(), nil
}

// readPassword prompts without echo on a terminal and otherwise reads one
// line from the command's input.
func readPassword(cmd *cobra.Command) (string, error) {
	var password string

	if isTerminal() {
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		b, err := readSecret()
		_, _ = fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		password = string(b)
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	if password == "" {
		return "", errEmptyPassword
	}
	return password, nil
}
