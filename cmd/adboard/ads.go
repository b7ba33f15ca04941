// ABOUTME: CLI commands for listing operations.
// ABOUTME: Provides list, create, update, and delete subcommands over the board engine.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/2389-research/adboard/internal/board"
	"github.com/2389-research/adboard/internal/models"
)

const (
	// deleteConcurrency bounds parallel deletes.
	deleteConcurrency = 4
	// settleTimeout bounds how long list waits for a page.
	settleTimeout = 30 * time.Second
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List listings",
	Long:  "Fetch one page of listings with optional search, category, location, and distance filters.",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Post a new listing",
	Long:  "Create a listing owned by the signed-in user.",
	Args:  cobra.NoArgs,
	RunE:  runCreate,
}

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Edit a listing",
	Long:  "Change fields of a listing. Only flags that are given are sent.",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpdate,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete listings",
	Long:  "Delete one or more listings owned by the signed-in user.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDelete,
}

// Flags
var (
	listSearch   string
	listCategory string
	listLocation string
	listLat      float64
	listLng      float64
	listRadius   float64
	listNearHome bool
	listPage     int
	listJSON     bool

	adTitle       string
	adDescription string
	adCategory    string
	adLocation    string
	adImageURL    string
	adLat         float64
	adLng         float64
)

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(deleteCmd)

	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "Free-text search")
	listCmd.Flags().StringVar(&listCategory, "category", "", "Filter by category")
	listCmd.Flags().StringVar(&listLocation, "location", "", "Filter by location text")
	listCmd.Flags().Float64Var(&listLat, "lat", 0, "Latitude of the search centre")
	listCmd.Flags().Float64Var(&listLng, "lng", 0, "Longitude of the search centre")
	listCmd.Flags().Float64Var(&listRadius, "radius", 0, "Search radius in km (default from config)")
	listCmd.Flags().BoolVar(&listNearHome, "near-home", false, "Search around geo.home from config")
	listCmd.Flags().IntVarP(&listPage, "page", "p", 1, "Page number")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Print the page as JSON")
	listCmd.MarkFlagsRequiredTogether("lat", "lng")
	listCmd.MarkFlagsMutuallyExclusive("lat", "near-home")

	createCmd.Flags().StringVarP(&adTitle, "title", "t", "", "Listing title")
	createCmd.Flags().StringVarP(&adDescription, "description", "d", "", "Listing description")
	createCmd.Flags().StringVar(&adCategory, "category", "", "Category")
	createCmd.Flags().StringVar(&adLocation, "location", "", "Location text")
	createCmd.Flags().StringVar(&adImageURL, "image", "", "Image URL")
	createCmd.Flags().Float64Var(&adLat, "lat", 0, "Latitude")
	createCmd.Flags().Float64Var(&adLng, "lng", 0, "Longitude")
	_ = createCmd.MarkFlagRequired("title")
	createCmd.MarkFlagsRequiredTogether("lat", "lng")

	updateCmd.Flags().StringVarP(&adTitle, "title", "t", "", "New title")
	updateCmd.Flags().StringVarP(&adDescription, "description", "d", "", "New description")
	updateCmd.Flags().StringVar(&adCategory, "category", "", "New category")
	updateCmd.Flags().StringVar(&adLocation, "location", "", "New location text")
	updateCmd.Flags().StringVar(&adImageURL, "image", "", "New image URL")
}

func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	engine := newEngine(board.WithInitialSearch(listSearch))
	defer engine.Close()

	engine.SetCategory(listCategory)
	engine.SetLocation(listLocation)

	radius := globalConfig.GetRadiusKm()
	if cmd.Flags().Changed("radius") {
		if listRadius <= 0 {
			return fmt.Errorf("--radius must be positive")
		}
		radius = listRadius
	}
	switch {
	case cmd.Flags().Changed("lat"):
		engine.SetGeo(listLat, listLng, &radius)
	case listNearHome:
		loc, err := homeLocator()
		if err != nil {
			return err
		}
		if loc == nil {
			return fmt.Errorf("--near-home needs geo.home in config")
		}
		lat, lng, err := loc.Locate(ctx)
		if err != nil {
			return err
		}
		engine.SetGeo(lat, lng, &radius)
	}
	engine.SetPage(listPage)

	engine.Start(ctx)
	sctx, scancel := context.WithTimeout(ctx, settleTimeout)
	defer scancel()
	v, err := engine.Settled(sctx)
	if err != nil {
		return err
	}
	if v.Err != nil {
		return v.Err
	}

	if listJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(models.PagedResult{Items: v.Items, TotalCount: v.TotalCount, Page: v.Page, PageSize: v.PageSize})
	}

	if len(v.Items) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No listings found.")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(v.Items))
	fmt.Fprintf(cmd.OutOrStdout(), "Page %d of %d (%d listings)\n", v.Page, v.TotalPages, v.TotalCount)
	return nil
}

func renderTable(items []models.Ad) string {
	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "TITLE", "CATEGORY", "LOCATION", "BY", "POSTED").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, ad := range items {
		posted := ""
		if !ad.CreatedAt.IsZero() {
			posted = ad.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		t.Row(ad.ID, ad.Title, ad.Category, ad.Location, ad.UserName, posted)
	}
	return t.String()
}

func runCreate(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	if strings.TrimSpace(adTitle) == "" {
		return fmt.Errorf("--title must not be blank")
	}
	in := models.AdCreate{
		Title:       adTitle,
		Description: adDescription,
		Category:    adCategory,
		Location:    adLocation,
		ImageURL:    adImageURL,
	}
	if cmd.Flags().Changed("lat") {
		in.Latitude = models.Float(adLat)
		in.Longitude = models.Float(adLng)
	}

	engine := newEngine()
	defer engine.Close()

	ad, err := engine.Create(ctx, in)
	if err != nil {
		return explain(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created listing %s\n", ad.ID)
	return nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	var in models.AdUpdate
	flags := cmd.Flags()
	if flags.Changed("title") {
		in.Title = models.String(adTitle)
	}
	if flags.Changed("description") {
		in.Description = models.String(adDescription)
	}
	if flags.Changed("category") {
		in.Category = models.String(adCategory)
	}
	if flags.Changed("location") {
		in.Location = models.String(adLocation)
	}
	if flags.Changed("image") {
		in.ImageURL = models.String(adImageURL)
	}
	if in.Patch().IsEmpty() {
		return fmt.Errorf("nothing to update: pass at least one of --title, --description, --category, --location, --image")
	}

	engine := newEngine()
	defer engine.Close()

	if _, err := engine.Update(ctx, args[0], in); err != nil {
		return explain(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated listing %s\n", args[0])
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	engine := newEngine()
	defer engine.Close()

	failures := make([]error, len(args))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(deleteConcurrency)
	for i, id := range args {
		g.Go(func() error {
			if err := engine.Delete(gctx, id); err != nil {
				failures[i] = fmt.Errorf("%s: %w", id, explain(err))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted listing %s\n", id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return errors.Join(failures...)
}

// explain adds a next step to permission failures.
func explain(err error) error {
	var es *board.ErrorState
	if !errors.As(err, &es) {
		return err
	}
	switch es.Kind {
	case board.ErrUnauthorized:
		return fmt.Errorf("%s (run 'adboard login' first)", es.Message)
	case board.ErrForbidden:
		return fmt.Errorf("%s (you can only change your own listings)", es.Message)
	}
	return fmt.Errorf("%s: %w", es.Message, es.Err)
}
