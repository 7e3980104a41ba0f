package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/umthana/SungrowInverter/internal/auth"
	"github.com/umthana/SungrowInverter/internal/catalog"
	"github.com/umthana/SungrowInverter/internal/config"
	"github.com/umthana/SungrowInverter/internal/decoder"
	"github.com/umthana/SungrowInverter/internal/modbus"
	"github.com/umthana/SungrowInverter/internal/profiles"
	"github.com/umthana/SungrowInverter/internal/storage"
	"github.com/umthana/SungrowInverter/internal/types"
)

var errInvalidCatalog = errors.New("catalog has errors")

const dbTimeout = 30 * time.Second

// common flags shared by every command
type options struct {
	profile     string
	searchPaths []string
	verbose     bool
}

func newFlagSet(name string, stderr io.Writer, opts *options) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.profile, "profile", "", "profile file, or a bare profile name found in -search, to use instead of the compiled-in catalog")
	fs.Func("search", "directory searched for bare -profile names (repeatable)", func(dir string) error {
		opts.searchPaths = append(opts.searchPaths, dir)
		return nil
	})
	fs.BoolVar(&opts.verbose, "v", false, "log to stderr")
	return fs
}

func (o *options) logger() *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func (o *options) catalog(logger *zap.Logger) (*catalog.Catalog, error) {
	if o.profile == "" {
		return catalog.StringInverter()
	}

	loader, err := profiles.NewProfileLoader(o.searchPaths, logger)
	if err != nil {
		return nil, err
	}
	profile, err := loader.Load(o.profile)
	if err != nil {
		return nil, err
	}
	return profiles.Build(profile)
}

func runValidate(args []string, stdout, stderr io.Writer) error {
	var opts options
	fs := newFlagSet("validate", stderr, &opts)
	quiet := fs.Bool("q", false, "print errors only")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := opts.catalog(opts.logger())
	if err != nil {
		return err
	}

	report := catalog.Validate(c)
	fmt.Fprintf(stdout, "%s: %d read, %d holding registers, %d code tables\n",
		c.Info().ID, c.Size(types.RegisterClassRead), c.Size(types.RegisterClassHolding), len(c.Tables()))

	for _, e := range report.Errors {
		fmt.Fprintf(stdout, "error   %s %s\n", e.Code, e.Message)
	}
	if !*quiet {
		for _, w := range report.Warnings {
			fmt.Fprintf(stdout, "warning %s %s\n", w.Code, w.Message)
		}
	}

	if !report.Valid {
		return fmt.Errorf("%w: %d errors", errInvalidCatalog, len(report.Errors))
	}
	fmt.Fprintln(stdout, "ok")
	return nil
}

func runExport(args []string, stdout, stderr io.Writer) error {
	var opts options
	fs := newFlagSet("export", stderr, &opts)
	formatName := fs.String("format", "json", "json or yaml")
	out := fs.String("o", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	format, err := profiles.ParseFormat(*formatName)
	if err != nil {
		return err
	}
	c, err := opts.catalog(opts.logger())
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := profiles.Write(&buf, profiles.Export(c), format); err != nil {
		return err
	}

	if *out == "" {
		_, err = stdout.Write(buf.Bytes())
		return err
	}
	return os.WriteFile(*out, buf.Bytes(), 0o644)
}

func runPlan(args []string, stdout, stderr io.Writer) error {
	var opts options
	fs := newFlagSet("plan", stderr, &opts)
	className := fs.String("class", "read", "read or holding")
	unit := fs.Uint("unit", 1, "Modbus unit ID")
	if err := fs.Parse(args); err != nil {
		return err
	}

	class, err := types.ParseRegisterClass(*className)
	if err != nil {
		return err
	}
	if *unit > 255 {
		return fmt.Errorf("unit ID %d out of range", *unit)
	}
	c, err := opts.catalog(opts.logger())
	if err != nil {
		return err
	}

	reads, err := modbus.PlanReads(c, class, uint8(*unit), 1)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANGE\tCOUNT\tFC\tADU")
	for _, r := range reads {
		fmt.Fprintf(tw, "%s\t%d\t0x%02X\t%s\n", r.Range, r.Range.Count, r.Frame.FunctionCode, hex.EncodeToString(r.Frame.Encode()))
	}
	return tw.Flush()
}

func runDecode(args []string, stdout, stderr io.Writer) error {
	var opts options
	fs := newFlagSet("decode", stderr, &opts)
	className := fs.String("class", "read", "read or holding")
	model := fs.String("model", "", "device type code, e.g. 0x013C (default: model unknown)")
	strict := fs.Bool("strict", false, "skip model-restricted registers while the model is unknown")
	start := fs.Uint("start", 0, "wire offset the request started at")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expected one frame file (hex, - for stdin)")
	}

	class, err := types.ParseRegisterClass(*className)
	if err != nil {
		return err
	}
	if *start > 0xFFFF {
		return fmt.Errorf("start %d out of range", *start)
	}
	filter, err := filterFor(*model, *strict)
	if err != nil {
		return err
	}

	raw, err := readHex(fs.Arg(0))
	if err != nil {
		return err
	}
	frame, err := modbus.DecodeFrame(raw)
	if err != nil {
		return err
	}
	block, err := frame.Block(uint16(*start))
	if err != nil {
		return err
	}

	logger := opts.logger()
	c, err := opts.catalog(logger)
	if err != nil {
		return err
	}
	res := decoder.New(c, logger).Decode(class, filter, []decoder.Block{block})

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	for _, v := range res.Values {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", v.Address, v.Name, formatValue(v), v.Unit)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%d decoded, %d not in frame\n", len(res.Values), len(res.Skipped))
	return nil
}

func runEncode(args []string, stdout, stderr io.Writer) error {
	var opts options
	fs := newFlagSet("encode", stderr, &opts)
	name := fs.String("register", "", "holding register name")
	value := fs.Float64("value", 0, "physical value")
	unit := fs.Uint("unit", 1, "Modbus unit ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return errors.New("-register is required")
	}
	if *unit > 255 {
		return fmt.Errorf("unit ID %d out of range", *unit)
	}

	c, err := opts.catalog(opts.logger())
	if err != nil {
		return err
	}
	reg, ok := c.Lookup(types.RegisterClassHolding, *name)
	if !ok {
		return fmt.Errorf("no holding register %q", *name)
	}

	words, err := decoder.Encode(reg, *value)
	if err != nil {
		return err
	}
	frame, err := modbus.WriteRegistersRequest(1, uint8(*unit), reg.Offset(), words)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%s at %d: words %v\n%s\n", reg.Name(), reg.Address(), words, hex.EncodeToString(frame.Encode()))
	return nil
}

func runPublish(args []string, stdout, stderr io.Writer) error {
	var opts options
	fs := newFlagSet("publish", stderr, &opts)
	configPath := fs.String("config", "configs/config.yaml", "config file with the database section")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if opts.profile == "" {
		opts.profile = cfg.Catalog.ProfilePath
	}
	if len(opts.searchPaths) == 0 {
		opts.searchPaths = cfg.Catalog.SearchPaths
	}

	logger := opts.logger()
	c, err := opts.catalog(logger)
	if err != nil {
		return err
	}
	if report := catalog.Validate(c); !report.Valid {
		return fmt.Errorf("%w: %d errors, run validate", errInvalidCatalog, len(report.Errors))
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	profile := profiles.Export(c)
	id, err := db.SaveProfile(ctx, &profile)
	if err != nil {
		return err
	}

	logger.Info("Profile published", zap.String("profile", profile.DeviceProfile.ID), zap.String("row_id", id.String()))
	fmt.Fprintf(stdout, "published %s as %s\n", profile.DeviceProfile.ID, id)
	return nil
}

func runProfiles(args []string, stdout, stderr io.Writer) error {
	var opts options
	fs := newFlagSet("profiles", stderr, &opts)
	configPath := fs.String("config", "configs/config.yaml", "config file with the database section")
	formatName := fs.String("format", "json", "output format of show: json or yaml")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: catalogctl profiles [flags] list | show <name> | delete <name>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	action, name := fs.Arg(0), fs.Arg(1)
	switch {
	case action == "list" && fs.NArg() == 1:
	case (action == "show" || action == "delete") && fs.NArg() == 2:
	default:
		fs.Usage()
		return fmt.Errorf("expected list, show <name> or delete <name>, got %q", strings.Join(fs.Args(), " "))
	}

	format, err := profiles.ParseFormat(*formatName)
	if err != nil {
		return err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	switch action {
	case "list":
		rows, err := db.ListProfiles(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tVENDOR\tMODEL\tUPDATED\tID")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ProfileName, r.Vendor, r.Model, r.UpdatedAt.Format(time.RFC3339), r.ID)
		}
		return tw.Flush()
	case "show":
		profile, err := db.LoadProfile(ctx, name)
		if err != nil {
			return err
		}
		return profiles.Write(stdout, *profile, format)
	default:
		if err := db.DeleteProfile(ctx, name); err != nil {
			return err
		}
		opts.logger().Info("Profile deleted", zap.String("profile", name))
		fmt.Fprintf(stdout, "deleted %s\n", name)
		return nil
	}
}

func runToken(args []string, stdout, stderr io.Writer) error {
	var opts options
	fs := newFlagSet("token", stderr, &opts)
	configPath := fs.String("config", "configs/config.yaml", "config file with server.jwt_secret")
	subject := fs.String("subject", "catalogctl", "token subject")
	ttl := fs.Duration("ttl", 0, "token lifetime (default server.token_ttl)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *ttl == 0 {
		*ttl = cfg.Server.TokenTTL
	}

	handler, err := auth.NewJWTHandler(cfg.Server.JWTSecret, *ttl)
	if err != nil {
		return err
	}
	token, err := handler.GenerateToken(*subject, auth.ScopeReload)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, token)
	return nil
}

func openDatabase(ctx context.Context, cfg *config.Config) (*storage.PostgresClient, error) {
	db, err := storage.NewPostgresClient(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func filterFor(model string, strict bool) (catalog.ModelFilter, error) {
	if model != "" {
		id, err := types.ParseModelID(model)
		if err != nil {
			return catalog.ModelFilter{}, err
		}
		return catalog.ForModel(id), nil
	}
	if strict {
		return catalog.UnknownModel(), nil
	}
	return catalog.AnyModel(), nil
}

func readHex(path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	compact := strings.Join(strings.Fields(string(data)), "")
	raw, err := hex.DecodeString(compact)
	if err != nil {
		return nil, fmt.Errorf("frame is not hex: %w", err)
	}
	return raw, nil
}

func formatValue(v decoder.Value) string {
	switch {
	case v.Labels != nil:
		if len(v.Labels) == 0 {
			return "-"
		}
		return strings.Join(v.Labels, ",")
	case v.Label != "":
		return v.Label
	case v.Unknown:
		return fmt.Sprintf("%d (unknown code)", v.Raw)
	case v.Number != nil:
		return strconv.FormatFloat(*v.Number, 'f', -1, 64)
	}
	return strconv.FormatInt(v.Raw, 10)
}
