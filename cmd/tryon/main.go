// Command tryon walks the virtual try-on wizard from a terminal: it uploads a
// subject photo and a garment photo, starts a generation and polls it until
// the result is ready.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/rs/zerolog"

	"outfitlens/internal/client"
	"outfitlens/internal/domain"
	"outfitlens/internal/i18n"
	"outfitlens/internal/wizard"
)

const defaultConfigPath = "tryon.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to the YAML config")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	settings, err := loadConfig(*configPath)
	if err != nil {
		exitWithError(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.New(client.Options{BaseURL: settings.Server, Locale: settings.Locale})
	args := flag.Args()[1:]
	switch flag.Arg(0) {
	case "register":
		err = register(ctx, api, settings)
	case "run":
		err = run(ctx, api, settings, args)
	case "history":
		err = history(ctx, api, settings, args)
	case "images":
		err = images(ctx, api, settings, args)
	case "stats":
		err = stats(ctx, api, settings)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		exitWithError(err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: tryon [-config tryon.yaml] <command> [flags]

commands:
  register                         create the account from the config
  run [-out bundle.zip] SUBJECT GARMENT
                                   upload both photos and generate a try-on
  history [-page N]                list past generations
  images [-type T] [-page N]       list uploads (user_photo, clothing_photo, generated_result)
  stats                            dashboard counters
`)
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "tryon: %v\n", err)
	os.Exit(1)
}

func register(ctx context.Context, api *client.Client, s Settings) error {
	if s.Email == "" || s.Password == "" {
		return errors.New("email and password must be configured")
	}
	tokens, err := api.Register(ctx, s.Email, s.Password, s.FullName)
	if err != nil {
		return err
	}
	fmt.Println(i18n.T(s.Locale, "Hello, %s!", greetingName(tokens.User)))
	return nil
}

func login(ctx context.Context, api *client.Client, s Settings) (domain.User, error) {
	if s.Email == "" || s.Password == "" {
		return domain.User{}, errors.New("email and password must be configured")
	}
	tokens, err := api.Login(ctx, s.Email, s.Password)
	if err != nil {
		return domain.User{}, err
	}
	return tokens.User, nil
}

func greetingName(u domain.User) string {
	if name := u.FirstName(); name != "" {
		return name
	}
	return u.Email
}

func run(ctx context.Context, api *client.Client, s Settings, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	out := fs.String("out", "", "write the subject, garment and result images to this zip file")
	_ = fs.Parse(args)
	if fs.NArg() != 2 {
		return errors.New("run needs a subject photo and a garment photo")
	}

	subject, err := readFile(fs.Arg(0))
	if err != nil {
		return err
	}
	garment, err := readFile(fs.Arg(1))
	if err != nil {
		return err
	}

	user, err := login(ctx, api, s)
	if err != nil {
		return err
	}
	fmt.Println(i18n.T(s.Locale, "Hello, %s!", greetingName(user)))

	view := &printer{w: os.Stdout, locale: s.Locale}
	ctrl := wizard.New(api, api, wizard.Options{
		PollInterval: s.PollInterval,
		Logger:       zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel).With().Timestamp().Logger(),
		OnChange:     view.show,
	})
	defer ctrl.Close()

	if _, err := ctrl.SubmitImage(ctx, wizard.StepSubjectPhoto, subject); err != nil {
		return err
	}
	if _, err := ctrl.SubmitImage(ctx, wizard.StepGarmentPhoto, garment); err != nil {
		return err
	}
	if err := ctrl.ConfirmAndGenerate(ctx); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()
	snap, err := ctrl.Await(waitCtx)
	if err != nil {
		return fmt.Errorf("waiting for %s: %w", snap.JobID(), err)
	}
	if snap.Phase != wizard.PhaseSucceeded {
		return errors.New(i18n.T(s.Locale, snap.ErrorText))
	}

	if *out != "" {
		bundle, err := api.Download(ctx, snap.JobID())
		if err != nil {
			return err
		}
		if err := os.WriteFile(*out, bundle, 0o644); err != nil {
			return err
		}
		fmt.Printf("saved %s\n", *out)
	}
	return nil
}

func readFile(path string) (wizard.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return wizard.File{}, err
	}
	return wizard.File{Name: filepath.Base(path), Data: data}, nil
}

func history(ctx context.Context, api *client.Client, s Settings, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	page := fs.Int("page", 1, "page number")
	_ = fs.Parse(args)

	if _, err := login(ctx, api, s); err != nil {
		return err
	}
	result, err := api.History(ctx, domain.PageRequest{Page: *page})
	if err != nil {
		return err
	}
	renderHistory(os.Stdout, s.Locale, result)
	return nil
}

func images(ctx context.Context, api *client.Client, s Settings, args []string) error {
	fs := flag.NewFlagSet("images", flag.ExitOnError)
	imageType := fs.String("type", "", "filter by image type")
	page := fs.Int("page", 1, "page number")
	_ = fs.Parse(args)

	if _, err := login(ctx, api, s); err != nil {
		return err
	}
	result, err := api.ListImages(ctx, domain.ImageType(*imageType), domain.PageRequest{Page: *page})
	if err != nil {
		return err
	}
	renderImages(os.Stdout, s.Locale, result)
	return nil
}

func stats(ctx context.Context, api *client.Client, s Settings) error {
	if _, err := login(ctx, api, s); err != nil {
		return err
	}
	st, err := api.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("generations: %d\nuploads: %d\n", st.TotalGenerations, st.ImagesUploaded)
	return nil
}

// printer renders snapshots, skipping ones that look the same as the last.
type printer struct {
	w      io.Writer
	locale string

	mu   sync.Mutex
	last string
}

func (p *printer) show(snap wizard.Snapshot) {
	key := snap.State() + "|" + snap.ErrorText
	if snap.ActiveJob != nil {
		key += "|" + string(snap.ActiveJob.Status)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if key == p.last || (snap.Busy && snap.Phase == wizard.PhaseNone) {
		return
	}
	p.last = key
	renderSnapshot(p.w, p.locale, snap)
}
