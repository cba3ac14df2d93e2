// Command starter-demo exercises the full kit against the mock
// repositories: sign-up with form validation, cached collection reads with
// deduplication, an optimistic update, and theme toggling.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/nadav-galili/starter/internal/app"
	"github.com/nadav-galili/starter/internal/cache"
	"github.com/nadav-galili/starter/internal/config"
	"github.com/nadav-galili/starter/internal/prefs"
	"github.com/nadav-galili/starter/internal/repository"
	"github.com/nadav-galili/starter/internal/theme"
	"github.com/nadav-galili/starter/internal/validate"
)

func main() {
	var (
		envFile   = flag.String("env", "", "Path to a .env file to load before startup")
		prefsPath = flag.String("prefs", "", "Override path of the preference database")
	)
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			log.Fatalf("load env (%s): %v", *envFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *prefsPath != "" {
		cfg.Prefs.Path = *prefsPath
	}

	a, err := app.New(app.Options{
		Config:       cfg,
		SystemScheme: func() theme.Scheme { return theme.SchemeDark },
	})
	if err != nil {
		log.Fatalf("wire application: %v", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, a); err != nil && !errors.Is(err, context.Canceled) {
		a.Log.Error().Err(err).Msg("demo failed")
		os.Exit(1)
	}
}

// item is the demo's cached view of a collection document.
type item struct {
	ID    string
	Title string
}

func run(ctx context.Context, a *app.Application) error {
	a.Log.Info().
		Str("env", string(a.Config.Env)).
		Str("base_url", a.Config.API.BaseURL).
		Str("scheme", string(a.Theme.Effective())).
		Msg("application wired")

	// Validated sign-up.
	form := validate.NewForm(validate.SignupSchema(a.Validator))
	form.SetValue("email", "  Demo@Example.COM ")
	form.SetValue("password", "Sup3rSecret")
	form.SetValue("confirmPassword", "Sup3rSecret")
	values, ok := form.Submit()
	if !ok {
		return fmt.Errorf("signup form rejected")
	}

	session, err := a.Repos.Auth.SignUp(ctx, values["email"], values["password"], "Demo User")
	if err != nil {
		return fmt.Errorf("sign up: %w", err)
	}
	a.Log.Info().Str("user", session.User.Email).Msg("signed up")

	if err := a.Prefs.SaveSession(prefs.Session{
		UserID: session.User.ID,
		Email:  session.User.Email,
		Name:   session.User.Name,
		Token:  session.Token,
	}); err != nil {
		a.Log.Warn().Err(err).Msg("persist session")
	}
	_ = a.Repos.Analytics.Identify(ctx, session.User.ID, map[string]any{"plan": "free"})
	_ = a.Repos.Notifications.RegisterDevice(ctx, "demo-device-token", "ios")

	// Seed a collection through the repository boundary.
	for _, title := range []string{"First item", "Second item", "Third item"} {
		if _, err := a.Repos.Collections.Create(ctx, "items", map[string]any{"title": title}); err != nil {
			return fmt.Errorf("seed items: %w", err)
		}
	}

	// Two reads of the same key: the second is served from cache.
	listKey := cache.NewKey("items", "list")
	for i := 0; i < 2; i++ {
		list, err := fetchItems(ctx, a, listKey)
		if err != nil {
			return fmt.Errorf("fetch items: %w", err)
		}
		a.Log.Info().Int("round", i+1).Int("count", list.Total).Msg("items listed")
	}

	// Optimistic rename of the first item.
	list, ok := cache.Get[cache.List[item]](a.Cache, listKey)
	if !ok || len(list.Items) == 0 {
		return fmt.Errorf("expected seeded items in cache")
	}
	first := list.Items[0]
	detailKey := cache.NewKey("items", "detail", first.ID)
	a.Cache.SetValue(detailKey, first)

	err = cache.RunUpdate(ctx, a.Cache, cache.Update[item]{
		DetailKey:  detailKey,
		ListPrefix: cache.NewKey("items", "list"),
		Match:      func(it item) bool { return it.ID == first.ID },
		Apply: func(it item) item {
			it.Title = "Renamed item"
			return it
		},
		Call: func(ctx context.Context) error {
			_, err := a.Repos.Collections.Update(ctx, "items", first.ID, map[string]any{"title": "Renamed item"})
			return err
		},
		SuccessMessage: "Item renamed.",
	})
	if err != nil {
		return fmt.Errorf("rename item: %w", err)
	}
	if renamed, ok := cache.Get[item](a.Cache, detailKey); ok {
		a.Log.Info().Str("title", renamed.Title).Msg("optimistic rename applied")
	}

	a.Theme.Toggle()
	a.Log.Info().
		Str("preference", string(a.Theme.Preference())).
		Str("scheme", string(a.Theme.Effective())).
		Msg("theme toggled")

	_ = a.Repos.Analytics.Track(ctx, "demo_completed", nil)
	a.Log.Info().Msg("demo complete")
	return nil
}

func fetchItems(ctx context.Context, a *app.Application, key cache.Key) (cache.List[item], error) {
	return cache.Fetch(ctx, a.Cache, key, func(ctx context.Context) (cache.List[item], error) {
		docs, err := a.Repos.Collections.List(ctx, "items", repository.ListQuery{})
		if err != nil {
			return cache.List[item]{}, err
		}
		items := make([]item, 0, len(docs.Items))
		for _, d := range docs.Items {
			title, _ := d.Fields["title"].(string)
			items = append(items, item{ID: d.ID, Title: title})
		}
		return cache.List[item]{Items: items, Total: docs.Total}, nil
	})
}
