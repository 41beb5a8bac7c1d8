package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/tendant/simple-catalog/pkg/simplecatalog"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/config"
)

const usage = `Simple Catalog Admin CLI

A lightweight admin tool for the movie catalog that only requires database access.

USAGE:
  catalog-admin <command> [options]

COMMANDS:
  movies        List movies, newest first
  wishlists     List wishlist rows joined with user and movie
  sync-admins   Mark users in ADMIN_EMAILS as admins and demote everyone else
  migrate       Apply pending postgres migrations

ENVIRONMENT VARIABLES:
  DATABASE_URL      memory, postgres://... or mongodb://... (default: memory)
  DATABASE_NAME     MongoDB database name (default: simple_catalog)
  DB_SCHEMA         PostgreSQL schema name
  ADMIN_EMAILS      Comma-separated admin allow-list (sync-admins)
  ADMIN_EMAIL       Single legacy admin email, merged into ADMIN_EMAILS

  Configuration can be loaded from a .env file in the current directory.
  Command line environment variables override .env file values.

OPTIONS:
  --movie-id=<id>   Filter wishlists by movie
  --user-id=<id>    Filter wishlists by user
  --json            Output as JSON
`

type options struct {
	movieID string
	userID  string
	json    bool
}

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	command := os.Args[1]
	if command == "help" || command == "--help" || command == "-h" {
		fmt.Print(usage)
		os.Exit(0)
	}

	cfg, err := config.Load(config.WithEnv(), config.WithMigrations(command == "migrate"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	logger := cfg.NewLogger()

	repo, rt, err := cfg.BuildRepository(ctx, logger)
	if err != nil {
		log.Fatalf("Failed to connect to repository: %v", err)
	}
	defer rt.Close(ctx)

	opts := parseOptions(os.Args[2:])

	switch command {
	case "movies":
		err = listMovies(ctx, os.Stdout, repo, opts)
	case "wishlists":
		err = listWishlists(ctx, os.Stdout, repo, opts)
	case "sync-admins":
		err = syncAdmins(ctx, os.Stdout, repo, cfg.AdminEmails, opts)
	case "migrate":
		if cfg.DatabaseType != config.DatabasePostgres {
			err = fmt.Errorf("migrate requires a postgres DATABASE_URL, got %s", cfg.DatabaseType)
			break
		}
		fmt.Println("Migrations applied")
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Print(usage)
		os.Exit(1)
	}

	if err != nil {
		rt.Close(ctx)
		log.Fatalf("%s failed: %v", command, err)
	}
}

func parseOptions(args []string) options {
	var opts options
	for _, arg := range args {
		key, value := parseFlag(arg)
		switch key {
		case "json":
			opts.json = true
		case "movie-id":
			opts.movieID = value
		case "user-id":
			opts.userID = value
		}
	}
	return opts
}

func parseFlag(arg string) (string, string) {
	if !strings.HasPrefix(arg, "--") {
		return "", ""
	}
	arg = strings.TrimPrefix(arg, "--")
	if key, value, ok := strings.Cut(arg, "="); ok {
		return key, value
	}
	return arg, "true"
}

func listMovies(ctx context.Context, out io.Writer, repo simplecatalog.Repository, opts options) error {
	movies, err := repo.ListMovies(ctx)
	if err != nil {
		return err
	}

	if opts.json {
		return writeJSON(out, movies)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tTITLE\tYEAR\tGENRE\tRATING\tPOSTER\tCREATED\n")
	for _, m := range movies {
		poster := m.ImageKey
		if poster == "" {
			poster = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%.1f\t%s\t%s\n",
			m.ID,
			truncate(m.Title, 30),
			m.ReleaseYear,
			m.Genre,
			m.Rating,
			truncate(poster, 40),
			m.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()

	fmt.Fprintf(out, "\nTotal: %d\n", len(movies))
	return nil
}

type wishlistRow struct {
	ID         string `json:"id"`
	UserID     string `json:"userId"`
	UserEmail  string `json:"userEmail"`
	MovieID    string `json:"movieId"`
	MovieTitle string `json:"movieTitle"`
	CreatedAt  string `json:"createdAt"`
}

func listWishlists(ctx context.Context, out io.Writer, repo simplecatalog.Repository, opts options) error {
	filter := simplecatalog.WishlistFilter{UserID: opts.userID, MovieID: opts.movieID}

	entries, err := repo.ListWishlistEntries(ctx, filter)
	if err != nil {
		return err
	}

	userIDs := make([]string, 0, len(entries))
	movieIDs := make([]string, 0, len(entries))
	for _, e := range entries {
		userIDs = append(userIDs, e.UserID)
		movieIDs = append(movieIDs, e.MovieID)
	}
	users, err := repo.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return err
	}
	movies, err := repo.GetMoviesByIDs(ctx, movieIDs)
	if err != nil {
		return err
	}

	rows := make([]wishlistRow, 0, len(entries))
	for _, e := range entries {
		row := wishlistRow{
			ID:        e.ID,
			UserID:    e.UserID,
			MovieID:   e.MovieID,
			CreatedAt: e.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if u, ok := users[e.UserID]; ok {
			row.UserEmail = u.Email
		}
		if m, ok := movies[e.MovieID]; ok {
			row.MovieTitle = m.Title
		}
		rows = append(rows, row)
	}

	if opts.json {
		return writeJSON(out, map[string]interface{}{"wishlists": rows, "count": len(rows)})
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "USER\tMOVIE\tADDED\n")
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\n", orDash(row.UserEmail), orDash(truncate(row.MovieTitle, 30)), row.CreatedAt)
	}
	w.Flush()

	fmt.Fprintf(out, "\nTotal: %d\n", len(rows))
	return nil
}

func syncAdmins(ctx context.Context, out io.Writer, repo simplecatalog.Repository, adminEmails []string, opts options) error {
	if len(adminEmails) == 0 {
		return errors.New("no admin emails configured")
	}

	promoted, demoted, err := repo.SetAdminSnapshot(ctx, adminEmails)
	if err != nil {
		return err
	}

	result := simplecatalog.AdminSyncResult{Promoted: promoted, Demoted: demoted, AdminEmails: adminEmails}
	if opts.json {
		return writeJSON(out, result)
	}

	fmt.Fprintf(out, "Promoted: %d\nDemoted: %d\nAdmins: %s\n", promoted, demoted, strings.Join(adminEmails, ", "))
	return nil
}

func writeJSON(out io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
