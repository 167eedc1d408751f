// Command storectl is a terminal client for the storefront API.
//
// It keeps the session cookie in a file between runs, so a guest cart
// survives across invocations the same way it does in a browser:
//
//	storectl products --category tea
//	storectl cart add <productID> --qty 2
//	storectl checkout --first-name Ada --last-name Lovelace ...
//
// Google login happens in a browser. "storectl login" prints the URL; after
// signing in, copy the "sid" cookie and run "storectl login --token <value>".
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/storefront/internal/client"
)

const sessionCookie = "sid"

// app is the state shared by every subcommand.
type app struct {
	server      string
	sessionFile string
	jsonOutput  bool

	out    io.Writer
	client *client.Client
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:           "storectl",
		Short:         "Browse the catalog, manage a cart and place orders",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.connect()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.saveSession()
		},
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVar(&a.server, "server", envOr("STOREFRONT_URL", "http://localhost:8080"), "storefront base URL")
	flags.StringVar(&a.sessionFile, "session-file", defaultSessionFile(), "file holding the session cookie")
	flags.BoolVar(&a.jsonOutput, "json", false, "print raw JSON instead of tables")

	root.AddCommand(
		a.loginCmd(),
		a.whoamiCmd(),
		a.logoutCmd(),
		a.productsCmd(),
		a.productCmd(),
		a.categoriesCmd(),
		a.cartCmd(),
		a.checkoutCmd(),
		a.ordersCmd(),
		a.orderCmd(),
		a.contactCmd(),
		a.adminCmd(),
	)
	return root
}

// connect builds the API client and restores the saved session, if any.
func (a *app) connect() error {
	c, err := client.New(a.server)
	if err != nil {
		return err
	}
	a.client = c

	if a.sessionFile == "" {
		return nil
	}
	raw, err := os.ReadFile(a.sessionFile)
	switch {
	case os.IsNotExist(err):
		return nil
	case err != nil:
		return fmt.Errorf("reading session file: %w", err)
	}
	if token := strings.TrimSpace(string(raw)); token != "" {
		c.SetCookie(sessionCookie, token)
	}
	return nil
}

// saveSession writes the current session cookie back to disk. A cleared
// cookie (after logout) removes the file.
func (a *app) saveSession() error {
	if a.client == nil || a.sessionFile == "" {
		return nil
	}
	token := a.client.Cookie(sessionCookie)
	if token == "" {
		if err := os.Remove(a.sessionFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing session file: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(a.sessionFile), 0o700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	return os.WriteFile(a.sessionFile, []byte(token+"\n"), 0o600)
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "storectl", "session")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
