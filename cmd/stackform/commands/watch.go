package commands

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [manifest]",
		Short: "Re-validate the stack whenever the manifest changes",
		Long: `Watch the manifest file and its directory and re-run the full
validation pipeline on every change.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := manifestArg(args)

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			defer watcher.Close()

			// Watch the directory: editors replace files on save, which
			// drops a watch registered on the file itself.
			if err := watcher.Add(filepath.Dir(path)); err != nil {
				return err
			}

			runOnce := func() {
				report, err := runValidate(cmd, path)
				if err != nil {
					log.Error().Err(err).Msg("Validation run failed")
					return
				}
				printReport(report)
			}

			runOnce()
			log.Info().Str("manifest", path).Msg("Watching for changes")

			var debounce *time.Timer
			for {
				select {
				case <-cmd.Context().Done():
					return nil

				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
						continue
					}
					if !sameFile(event.Name, path) && !strings.HasSuffix(event.Name, ".yaml") {
						continue
					}

					if debounce != nil {
						debounce.Stop()
					}
					debounce = time.AfterFunc(300*time.Millisecond, func() {
						log.Info().Str("file", event.Name).Msg("Manifest changed, re-validating")
						runOnce()
					})

				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					log.Error().Err(err).Msg("Watcher error")
				}
			}
		},
	}

	return cmd
}

func sameFile(a, b string) bool {
	ca, err := filepath.Abs(a)
	if err != nil {
		return false
	}
	cb, err := filepath.Abs(b)
	if err != nil {
		return false
	}
	return ca == cb
}
