// Command directory-fake serves a seeded in-memory Directory Service for
// local development against the registration API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"vetdesk/internal/directory"
	"vetdesk/internal/directory/directorytest"
	jwttoken "vetdesk/internal/jwt_token"
	"vetdesk/internal/platform/config"
	"vetdesk/internal/platform/httpserver"
	"vetdesk/internal/platform/logger"
	"vetdesk/internal/registration/models"
)

var (
	addr     string
	logLevel string
	noSeed   bool
)

// rootCmd serves the fake directory until interrupted.
var rootCmd = &cobra.Command{
	Use:   "directory-fake",
	Short: "Serve an in-memory Directory Service",
	Long: `directory-fake serves the Directory Service API from memory so the
registration API can run locally without the real service.

Tokens are checked with VETDESK_DIRECTORY_SIGNING_KEY and
VETDESK_DIRECTORY_ISSUER, the same settings the registration API signs with.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&addr, "addr", ":9090", "listen address")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&noSeed, "no-seed", false, "start with an empty directory")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	log := logger.New(logLevel, "text")
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	fake := directorytest.New(directorytest.WithTokens(
		jwttoken.NewJWTService(cfg.Directory.SigningKey, cfg.Directory.Issuer, directory.Audience),
	))
	if !noSeed {
		seed(fake)
	}
	srv := httpserver.New(addr, fake.Router())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting fake directory", "addr", addr, "seeded", !noSeed)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func seed(fake *directorytest.Server) {
	dog := fake.AddKind("Dog")
	cat := fake.AddKind("Cat")
	labrador := fake.AddSpecies(dog.ID, "Labrador")
	fake.AddSpecies(dog.ID, "Beagle")
	fake.AddSpecies(cat.ID, "Siamese")

	anna := fake.AddOwner("12345678901")
	piotr := fake.AddOwner("98765432109")
	fake.AddAnimal(models.Candidate{
		AnimalKindID:   dog.ID,
		SpeciesID:      labrador.ID,
		SpeciesName:    labrador.Name,
		AnimalName:     "Rex",
		BirthDate:      "2019-04-01",
		IdentityNumber: "982000123456789",
	}, anna, piotr)
	fake.AddAnimal(models.Candidate{
		AnimalKindID:   dog.ID,
		SpeciesID:      labrador.ID,
		SpeciesName:    labrador.Name,
		AnimalName:     "Luna",
		IdentityNumber: "982000000000001",
	})
}
