package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/goriller/ginny-util/graceful"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/plexgrid/plexgrid/config"
	"github.com/plexgrid/plexgrid/logger"
	"github.com/plexgrid/plexgrid/plextv"
	"github.com/plexgrid/plexgrid/pms"
	"github.com/plexgrid/plexgrid/resolver"
	"github.com/plexgrid/plexgrid/vault"
)

const usage = `usage: plexgrid [-config file] <command> [args]

commands:
  login <username>                 sign in (password via PLEXGRID_PASSWORD)
  logout                           drop the stored session
  profiles                         list home profiles
  switch <user-id> [pin]           switch to a home profile
  servers                          list reachable servers
  libraries <server>               list photo libraries of a server
  photos <server> <section> [n]    list photos of a section
  browse <server> <key>            follow a folder key
  rate <server> <rating-key> <0-10>
  download <server> <part-key> <file>
`

func main() {
	configPath := flag.String("config", "", "config file path")
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	v, err := config.NewViper(*configPath)
	if err != nil {
		// the CLI works without a config file, env vars cover the rest
		v = viper.New()
		v.SetEnvPrefix("PLEXGRID")
		v.AutomaticEnv()
	}

	logOpts, err := logger.NewOptions(v)
	if err != nil {
		fatal(err)
	}
	log, err := logger.NewLogger(logOpts)
	if err != nil {
		fatal(err)
	}
	graceful.AddCloser(func(ctx context.Context) error {
		return log.Sync()
	})

	app, err := newApp(v, log)
	if err != nil {
		graceful.Close()
		fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	runErr := app.run(ctx, args[0], args[1:])
	if runErr != nil {
		log.Error("command failed", zap.String("command", args[0]), zap.Error(runErr))
	}
	// drain the closer registry (logger sync, vault scrub) before exiting
	graceful.Close()
	if runErr != nil {
		fatal(runErr)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "plexgrid:", err)
	os.Exit(1)
}

// app wires the session pieces together for one invocation.
type app struct {
	logger *zap.Logger
	vault  *vault.Vault
	device plextv.Device
	tv     *plextv.Client
	res    *resolver.Resolver
}

func newApp(v *viper.Viper, log *zap.Logger) (*app, error) {
	vaultPath := v.GetString("vault.path")
	if vaultPath == "" {
		home, _ := os.UserHomeDir()
		vaultPath = filepath.Join(home, ".plexgrid", "session.enc")
	}
	passphrase := v.GetString("vault.passphrase")
	if passphrase == "" {
		passphrase = os.Getenv("PLEXGRID_PASSPHRASE")
	}
	vlt := vault.New(vaultPath, passphrase)
	graceful.AddCloser(vlt.Close)

	device := plextv.DefaultDevice()
	if d, err := plextv.NewDevice(v); err == nil {
		device = *d
	}

	var token string
	if session, err := vlt.Load(); err == nil {
		token = session.Token
		if session.ClientID != "" {
			device.ClientID = session.ClientID
		}
	}

	tv := plextv.NewClient(device,
		plextv.WithLogger(log),
		plextv.WithToken(token),
	)
	res, err := resolver.New(
		resolver.WithLogger(log),
		resolver.WithBackgroundLimit(rate.Every(10*time.Second), 3),
	)
	if err != nil {
		return nil, err
	}

	return &app{
		logger: log,
		vault:  vlt,
		device: device,
		tv:     tv,
		res:    res,
	}, nil
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		if len(args) < 1 {
			return fmt.Errorf("login needs a username")
		}
		return a.login(ctx, args[0])
	case "logout":
		return a.vault.Clear()
	case "profiles":
		return a.profiles(ctx)
	case "switch":
		if len(args) < 1 {
			return fmt.Errorf("switch needs a user id")
		}
		pin := ""
		if len(args) > 1 {
			pin = args[1]
		}
		return a.switchProfile(ctx, args[0], pin)
	case "servers":
		return a.servers(ctx)
	case "libraries":
		if len(args) < 1 {
			return fmt.Errorf("libraries needs a server name")
		}
		return a.libraries(ctx, args[0])
	case "photos":
		if len(args) < 2 {
			return fmt.Errorf("photos needs a server name and a section key")
		}
		size := 50
		if len(args) > 2 {
			if n, err := strconv.Atoi(args[2]); err == nil {
				size = n
			}
		}
		return a.photos(ctx, args[0], args[1], size)
	case "browse":
		if len(args) < 2 {
			return fmt.Errorf("browse needs a server name and a key")
		}
		return a.browse(ctx, args[0], args[1])
	case "rate":
		if len(args) < 3 {
			return fmt.Errorf("rate needs a server name, a rating key and a rating")
		}
		return a.rate(ctx, args[0], args[1], args[2])
	case "download":
		if len(args) < 3 {
			return fmt.Errorf("download needs a server name, a part key and an output file")
		}
		return a.download(ctx, args[0], args[1], args[2])
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) login(ctx context.Context, username string) error {
	password := os.Getenv("PLEXGRID_PASSWORD")
	if password == "" {
		return fmt.Errorf("set PLEXGRID_PASSWORD before logging in")
	}
	account, err := a.tv.SignIn(ctx, username, password)
	if err != nil {
		return err
	}
	err = a.vault.Save(&vault.Session{
		Username: account.Username,
		Token:    account.Token,
		ClientID: a.deviceID(),
	})
	if err != nil {
		return err
	}
	fmt.Printf("signed in as %s\n", account.Username)
	return nil
}

func (a *app) profiles(ctx context.Context) error {
	users, err := a.tv.HomeUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		marker := ""
		if u.Admin {
			marker = " (admin)"
		}
		if u.Protected {
			marker += " (pin)"
		}
		fmt.Printf("%d\t%s%s\n", u.ID, u.Title, marker)
	}
	return nil
}

func (a *app) switchProfile(ctx context.Context, idArg, pin string) error {
	id, err := strconv.Atoi(idArg)
	if err != nil {
		return fmt.Errorf("user id must be a number: %q", idArg)
	}
	account, err := a.tv.SwitchHomeUser(ctx, id, pin)
	if err != nil {
		return err
	}
	err = a.vault.Save(&vault.Session{
		Username: account.Title,
		Token:    account.Token,
		ClientID: a.deviceID(),
	})
	if err != nil {
		return err
	}
	fmt.Printf("switched to %s\n", account.Title)
	return nil
}

// servers filters the account's servers down to the reachable ones before
// showing any choices, probing them concurrently.
func (a *app) servers(ctx context.Context) error {
	ds, err := a.tv.Servers(ctx)
	if err != nil {
		return err
	}
	reachable := a.res.ProbeAll(ctx, ds, resolver.DefaultProbeTimeout)
	for i, d := range ds {
		state := "unreachable"
		if reachable[i] {
			state = "online"
		}
		owned := ""
		if d.Owned {
			owned = " (owned)"
		}
		fmt.Printf("%s\t%s%s\t%d endpoints\n", d.Name, state, owned, len(d.Endpoints))
	}
	return nil
}

func (a *app) libraries(ctx context.Context, serverName string) error {
	client, err := a.pmsClient(ctx, serverName)
	if err != nil {
		return err
	}
	sections, err := client.PhotoLibraries(ctx)
	if err != nil {
		return err
	}
	for _, s := range sections {
		fmt.Printf("%s\t%s\n", s.Key, s.Title)
	}
	return nil
}

func (a *app) photos(ctx context.Context, serverName, sectionKey string, size int) error {
	client, err := a.pmsClient(ctx, serverName)
	if err != nil {
		return err
	}
	container, err := client.SectionAll(ctx, sectionKey, 0, size)
	if err != nil {
		return err
	}
	printContainer(container)
	return nil
}

func (a *app) browse(ctx context.Context, serverName, key string) error {
	client, err := a.pmsClient(ctx, serverName)
	if err != nil {
		return err
	}
	container, err := client.Browse(ctx, key)
	if err != nil {
		return err
	}
	printContainer(container)
	return nil
}

func (a *app) rate(ctx context.Context, serverName, ratingKey, ratingArg string) error {
	rating, err := strconv.ParseFloat(ratingArg, 64)
	if err != nil || rating < 0 || rating > 10 {
		return fmt.Errorf("rating must be a number between 0 and 10")
	}
	client, err := a.pmsClient(ctx, serverName)
	if err != nil {
		return err
	}
	return client.Rate(ctx, ratingKey, rating)
}

func (a *app) download(ctx context.Context, serverName, partKey, outPath string) error {
	client, err := a.pmsClient(ctx, serverName)
	if err != nil {
		return err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()
	n, err := client.Download(ctx, partKey, f)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %d bytes to %s\n", n, outPath)
	return nil
}

// pmsClient finds the named server in the account's resource listing and
// binds a media server client to it.
func (a *app) pmsClient(ctx context.Context, serverName string) (*pms.Client, error) {
	ds, err := a.tv.Servers(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range ds {
		if d.Name == serverName || d.MachineID == serverName {
			if err := d.Validate(); err != nil {
				return nil, err
			}
			return pms.NewClient(a.res, d,
				pms.WithClientLogger(a.logger),
				pms.WithListingCache(30*time.Second),
			), nil
		}
	}
	return nil, fmt.Errorf("no server named %q on this account", serverName)
}

func (a *app) deviceID() string {
	return a.device.ClientID
}

func printContainer(c *pms.MediaContainer) {
	for _, dir := range c.Directory {
		fmt.Printf("dir\t%s\t%s\n", dir.Key, dir.Title)
	}
	for _, m := range c.Metadata {
		part := ""
		if p, ok := m.OriginalPart(); ok {
			part = p.Key
		}
		fmt.Printf("%s\t%s\t%s\t%s\n", m.Type, m.RatingKey, m.Title, part)
	}
}
