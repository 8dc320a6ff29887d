package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcoot/minimarket/internal/api/response"
	"github.com/mcoot/minimarket/internal/factory"
	"github.com/mcoot/minimarket/internal/model"
	"github.com/mcoot/minimarket/internal/services/profile"
)

func newCreateCmd() *cobra.Command {
	var name, avatar, language string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new profile",
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, app *factory.App, args []string) error {
			p, err := app.Profiles.Create(ctx, name, model.Avatar(avatar), model.Language(language))
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(response.ProfileFromModel(p))
			return nil
		}),
	}

	cmd.Flags().StringVar(&name, "name", "", "Player name (required)")
	cmd.Flags().StringVar(&avatar, "avatar", string(model.AvatarDefault), "Avatar")
	cmd.Flags().StringVar(&language, "language", string(model.DefaultLanguage), "Interface language")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <profile-id>",
		Short: "Show a profile",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, app *factory.App, args []string) error {
			p, err := app.Profiles.Load(ctx, model.ProfileID(args[0]))
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(response.ProfileFromModel(p))
			return nil
		}),
	}
}

func newListCmd() *cobra.Command {
	var sortBy string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all profiles",
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, app *factory.App, args []string) error {
			profiles, err := app.Profiles.ListSorted(ctx, profile.SortOrder(sortBy))
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(response.ProfileListFromModels(profiles))
			return nil
		}),
	}

	cmd.Flags().StringVar(&sortBy, "sort", string(profile.SortByCreated), "Sort order: created, name")

	return cmd
}

func newUpdateCmd() *cobra.Command {
	var (
		name, avatar, language string
		settings               []string
	)

	cmd := &cobra.Command{
		Use:   "update <profile-id>",
		Short: "Change a profile's name, avatar, language or settings",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, app *factory.App, args []string) error {
			var update profile.ProfileUpdate
			if cmd.Flags().Changed("name") {
				update.Name = &name
			}
			if cmd.Flags().Changed("avatar") {
				a := model.Avatar(avatar)
				update.Avatar = &a
			}
			if cmd.Flags().Changed("language") {
				l := model.Language(language)
				update.Language = &l
			}
			if len(settings) > 0 {
				parsed, err := parseSettings(settings)
				if err != nil {
					return err
				}
				update.Settings = parsed
			}

			p, err := app.Profiles.Update(ctx, model.ProfileID(args[0]), update)
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(response.ProfileFromModel(p))
			return nil
		}),
	}

	cmd.Flags().StringVar(&name, "name", "", "New player name")
	cmd.Flags().StringVar(&avatar, "avatar", "", "New avatar")
	cmd.Flags().StringVar(&language, "language", "", "New interface language")
	cmd.Flags().StringArrayVar(&settings, "set", nil, "Setting as key=value, repeatable (e.g. --set music_volume=0.5)")

	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <profile-id>",
		Short: "Delete a profile",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, app *factory.App, args []string) error {
			if err := app.Profiles.Delete(ctx, model.ProfileID(args[0])); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).PrintMessage(fmt.Sprintf("Deleted profile %s", args[0]))
			return nil
		}),
	}
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show storage statistics",
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, app *factory.App, args []string) error {
			stats, err := app.Profiles.Stats(ctx)
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(response.StorageInfo{
				Backend:      cfg.StorageType,
				Profiles:     stats.Profiles,
				StorageBytes: stats.StorageBytes,
			})
			return nil
		}),
	}
}

// parseSettings turns key=value pairs into setting values. Values that parse
// as JSON (numbers, booleans) keep their type; anything else is a string.
func parseSettings(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid setting %q: expected key=value", pair)
		}

		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		out[key] = value
	}
	return out, nil
}
