package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sengketa/internal/app"
	"sengketa/internal/config"
	"sengketa/internal/db"
	"sengketa/internal/domain"
	"sengketa/internal/engine"
	"sengketa/internal/intake"
	"sengketa/internal/ledger"
	"sengketa/internal/repo"
	"sengketa/internal/server"
	sengketasdk "sengketa/sdk/go"
)

var rootCmd = &cobra.Command{
	Use:   "sengketa",
	Short: "Sengketa dispute lifecycle CLI",
	Long: `Sengketa records administrative disputes from receipt to a final decision.
- Case: a dispute between a petitioner and a respondent; received -> validated -> in_session -> decided.
- Exits: a case is cancelled before its first hearing, or withdrawn while in session.
- Roles: admin validates and closes cases, convener schedules hearings, adjudicator decides. Anyone may file.
- Documents: decision and disposition files are stored by content digest (sengketa doc put).
- Event log: every accepted transition, view with 'sengketa log tail'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("SENGKETA")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().String("config", "", "config file (default <workspace>/sengketa.yml)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("caller", "local-user", "caller identity")
	rootCmd.PersistentFlags().Bool("verbose", false, "debug logging")
	for _, name := range []string{"workspace", "config", "json", "caller", "verbose"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(caseCmd())
	rootCmd.AddCommand(hearingCmd())
	rootCmd.AddCommand(decisionCmd())
	rootCmd.AddCommand(submitCmd())
	rootCmd.AddCommand(queryCmd())
	rootCmd.AddCommand(docCmd())
	rootCmd.AddCommand(roleCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func initCmd() *cobra.Command {
	var admin string
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create sengketa.yml and the workspace database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if admin == "" {
				admin = viper.GetString("caller")
			}
			path, err := app.Init(cmd.Context(), viper.GetString("workspace"), admin, force)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"config": path, "admin": admin})
			}
			fmt.Printf("Initialized %s (admin: %s)\n", path, admin)
			return nil
		},
	}
	cmd.Flags().StringVar(&admin, "admin", "", "admin identity (default: --caller)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect workspace config",
		Long:  "Config lives in sengketa.yml: the role table, the document store driver and the HTTP server settings.",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return printJSONOrTable(cfg)
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err == nil {
				err = server.CheckWebhookEvents(cfg.Webhooks)
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
}

func caseCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "case",
		Short: "File, validate and close disputes",
	}
	c.AddCommand(caseReceiveCmd())
	c.AddCommand(caseValidateCmd())
	c.AddCommand(caseDisposeCmd("cancel", "Cancel a case before its first hearing"))
	c.AddCommand(caseDisposeCmd("withdraw", "Withdraw an in-session case"))
	c.AddCommand(caseShowCmd())
	c.AddCommand(caseListCmd())
	c.AddCommand(caseStatsCmd())
	c.AddCommand(caseTransitionsCmd())
	c.AddCommand(caseExtractCmd())
	return c
}

func caseReceiveCmd() *cobra.Command {
	var id int64
	var petitioner, respondent, from string
	cmd := &cobra.Command{
		Use:   "receive",
		Short: "Register a new dispute",
		Long:  "Register a new dispute. With --from, parties missing from the flags are read from the filing's text.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if from != "" {
				res, err := extractFile(from)
				if err != nil {
					return err
				}
				if petitioner == "" {
					petitioner = res.Petitioner
				}
				if respondent == "" {
					respondent = res.Respondent
				}
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return printReceipt(a.Engine.ReceiveCase(ctx, caller(), id, petitioner, respondent))
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "case id")
	cmd.Flags().StringVar(&petitioner, "petitioner", "", "petitioner name")
	cmd.Flags().StringVar(&respondent, "respondent", "", "respondent name")
	cmd.Flags().StringVar(&from, "from", "", "text of the filing to read parties from")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func caseExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <file>",
		Short: "Read the registration number and parties from a filing's text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := extractFile(args[0])
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(res)
			}
			notFound := func(v string) string {
				if v == "" {
					return "(not found)"
				}
				return v
			}
			fmt.Printf("Number:     %s\nPetitioner: %s\nRespondent: %s\n", notFound(res.Number), notFound(res.Petitioner), notFound(res.Respondent))
			return nil
		},
	}
}

func caseValidateCmd() *cobra.Command {
	var id int64
	var count int
	var agencies []string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Record the agencies involved in a case",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("count") {
				count = len(agencies)
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return printReceipt(a.Engine.ValidateCase(ctx, caller(), id, count, agencies))
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "case id")
	cmd.Flags().IntVar(&count, "count", 0, "declared agency count (default: number of --agency)")
	cmd.Flags().StringSliceVar(&agencies, "agency", nil, "agency code (repeatable or comma separated)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func caseDisposeCmd(action, short string) *cobra.Command {
	var id int64
	var ref, file string
	cmd := &cobra.Command{
		Use:   action,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			up, err := readUpload(file)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if action == "cancel" {
					return printReceipt(a.Service.Cancel(ctx, caller(), id, ref, up))
				}
				return printReceipt(a.Service.Withdraw(ctx, caller(), id, ref, up))
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "case id")
	cmd.Flags().StringVar(&ref, "doc-ref", "", "reference of an already stored document")
	cmd.Flags().StringVar(&file, "file", "", "document file to store and attach")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func caseShowCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a case",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				c, err := a.Engine.Case(ctx, id)
				if err != nil {
					return err
				}
				if c.Status == domain.StatusCancelled || c.Status == domain.StatusWithdrawn {
					d, err := a.Engine.Disposition(ctx, id)
					if err != nil {
						return err
					}
					return printJSONOrTable(map[string]any{"case": c, "disposition": d})
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "case id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func caseListCmd() *cobra.Command {
	var f repo.CaseFilters
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cases",
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "" {
				s := domain.Status(status)
				if !s.Valid() {
					return fmt.Errorf("unknown status %q", status)
				}
				f.Status = string(s)
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				cases, err := a.Engine.ListCases(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cases)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Status", "Petitioner", "Respondent", "Hearing", "Updated"})
				for _, c := range cases {
					hearing := ""
					if c.CurrentScheduleID != nil {
						hearing = fmt.Sprint(*c.CurrentScheduleID)
					}
					tw.AppendRow(table.Row{c.ID, c.Status, c.Petitioner, c.Respondent, hearing, c.UpdatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().Int64Var(&f.AfterID, "after", 0, "list cases with id greater than this")
	cmd.Flags().IntVar(&f.Limit, "limit", 100, "maximum number of cases")
	return cmd
}

func caseStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count cases by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				counts, err := a.Engine.CaseCounts(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(counts)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Status", "Cases"})
				total := 0
				for _, st := range []domain.Status{domain.StatusReceived, domain.StatusValidated, domain.StatusInSession, domain.StatusDecided, domain.StatusCancelled, domain.StatusWithdrawn} {
					tw.AppendRow(table.Row{st, counts[st]})
					total += counts[st]
				}
				tw.AppendFooter(table.Row{"total", total})
				tw.Render()
				return nil
			})
		},
	}
}

func caseTransitionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transitions",
		Short: "Show the lifecycle table: operation, role, from and to status",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := domain.Transitions()
			if viper.GetBool("json") {
				return printJSON(rows)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Operation", "Role", "From", "To"})
			for _, t := range rows {
				role, from, to := string(t.Role), "(new case)", string(t.To)
				if role == "" {
					role = "any"
				}
				if len(t.From) > 0 {
					parts := make([]string, len(t.From))
					for i, st := range t.From {
						parts[i] = string(st)
					}
					from = strings.Join(parts, ", ")
				}
				if to == "" {
					to = "(unchanged)"
				}
				tw.AppendRow(table.Row{t.Op, role, from, to})
			}
			tw.Render()
			return nil
		},
	}
}

func hearingCmd() *cobra.Command {
	h := &cobra.Command{
		Use:   "hearing",
		Short: "Schedule and inspect hearings",
	}
	h.AddCommand(hearingScheduleCmd(false))
	h.AddCommand(hearingScheduleCmd(true))
	h.AddCommand(hearingShowCmd())
	h.AddCommand(hearingListCmd())
	return h
}

func hearingScheduleCmd(update bool) *cobra.Command {
	var in engine.HearingInput
	var at string
	var kind int
	use, short := "schedule", "Schedule the preliminary hearing of a validated case"
	if update {
		use, short = "update", "Add a follow-up or decision-reading hearing"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := ledger.ParseTime(at)
			if err != nil {
				return fmt.Errorf("--at: %w", err)
			}
			in.At = t
			in.Kind = domain.HearingKind(kind)
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if update {
					return printReceipt(a.Engine.UpdateHearing(ctx, caller(), in))
				}
				return printReceipt(a.Engine.ScheduleInitialHearing(ctx, caller(), in))
			})
		},
	}
	cmd.Flags().Int64Var(&in.CaseID, "case", 0, "case id")
	cmd.Flags().Int64Var(&in.ScheduleID, "schedule", 0, "schedule id")
	cmd.Flags().StringVar(&in.Agenda, "agenda", "", "hearing agenda")
	cmd.Flags().StringVar(&at, "at", "", "hearing time (RFC3339 or unix seconds)")
	cmd.Flags().StringVar(&in.Venue, "venue", "", "hearing venue")
	if update {
		cmd.Flags().IntVar(&kind, "kind", int(domain.HearingFollowUp), "0 preliminary, 1 follow-up, 2 decision reading")
	}
	_ = cmd.MarkFlagRequired("case")
	_ = cmd.MarkFlagRequired("schedule")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}

func hearingShowCmd() *cobra.Command {
	var caseID, scheduleID int64
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a hearing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				h, err := a.Engine.Hearing(ctx, caseID, scheduleID)
				if err != nil {
					return err
				}
				return printJSONOrTable(h)
			})
		},
	}
	cmd.Flags().Int64Var(&caseID, "case", 0, "case id")
	cmd.Flags().Int64Var(&scheduleID, "schedule", 0, "schedule id")
	_ = cmd.MarkFlagRequired("case")
	_ = cmd.MarkFlagRequired("schedule")
	return cmd
}

func hearingListCmd() *cobra.Command {
	var caseID int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the hearings of a case",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				hs, err := a.Engine.ListHearings(ctx, caseID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(hs)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Seq", "Schedule", "Kind", "Agenda", "At", "Venue"})
				for _, h := range hs {
					tw.AppendRow(table.Row{h.Seq, h.ScheduleID, h.Kind, h.Agenda, h.ScheduledAt, h.Venue})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&caseID, "case", 0, "case id")
	_ = cmd.MarkFlagRequired("case")
	return cmd
}

func decisionCmd() *cobra.Command {
	dec := &cobra.Command{
		Use:   "decision",
		Short: "Record and finalize decisions",
		Long:  "A decision is recorded against a hearing and may be revised until it is finalized with a publication reference.",
	}
	dec.AddCommand(decisionRecordCmd(false))
	dec.AddCommand(decisionRecordCmd(true))
	dec.AddCommand(decisionShowCmd())
	dec.AddCommand(decisionListCmd())
	return dec
}

func decisionRecordCmd(final bool) *cobra.Command {
	var in engine.DecisionInput
	var status int
	var file string
	use, short := "add", "Record or revise a provisional decision"
	if final {
		use, short = "finalize", "Finalize the decision and close the case"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			up, err := readUpload(file)
			if err != nil {
				return err
			}
			in.Status = domain.DecisionStatus(status)
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return printReceipt(a.Service.Decide(ctx, caller(), in, up, final))
			})
		},
	}
	cmd.Flags().Int64Var(&in.CaseID, "case", 0, "case id")
	cmd.Flags().Int64Var(&in.ScheduleID, "schedule", 0, "schedule id of the hearing")
	cmd.Flags().IntVar(&status, "status", 0, "decision status code (0-5)")
	cmd.Flags().StringVar(&in.DocumentRef, "doc-ref", "", "reference of an already stored decision document")
	cmd.Flags().StringVar(&file, "file", "", "decision document to store and attach")
	cmd.Flags().StringVar(&in.PublicationRef, "publication", "", "publication (JDIH) reference")
	_ = cmd.MarkFlagRequired("case")
	_ = cmd.MarkFlagRequired("schedule")
	return cmd
}

func decisionShowCmd() *cobra.Command {
	var caseID, scheduleID int64
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the decision recorded against a hearing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				d, err := a.Engine.Decision(ctx, caseID, scheduleID)
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	cmd.Flags().Int64Var(&caseID, "case", 0, "case id")
	cmd.Flags().Int64Var(&scheduleID, "schedule", 0, "schedule id")
	_ = cmd.MarkFlagRequired("case")
	_ = cmd.MarkFlagRequired("schedule")
	return cmd
}

func decisionListCmd() *cobra.Command {
	var caseID int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the decisions recorded on a case",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				ds, err := a.Engine.Decisions(ctx, caseID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(ds)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Schedule", "Status", "Final", "Document", "Publication", "By"})
				for _, d := range ds {
					tw.AppendRow(table.Row{d.ScheduleID, d.Status, d.Final, d.DocumentRef, d.PublicationRef, d.DecidedBy})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&caseID, "case", 0, "case id")
	_ = cmd.MarkFlagRequired("case")
	return cmd
}

func submitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit <operation> [args...]",
		Short: "Run a lifecycle operation by name with positional arguments",
		Long:  "Operations: " + usageList(operationNames()),
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTransport(cmd, func(ctx context.Context, t ledger.Transport) error {
				return printReceipt(t.Submit(ctx, caller(), args[0], args[1:]))
			})
		},
	}
	addRemoteFlag(cmd)
	return cmd
}

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <name> [args...]",
		Short: "Evaluate a read query by name with positional arguments",
		Long:  "Queries: " + usageList(ledger.Queries),
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTransport(cmd, func(ctx context.Context, t ledger.Transport) error {
				res, err := t.Query(ctx, args[0], args[1:])
				if err != nil {
					return err
				}
				return printJSONOrTable(res)
			})
		},
	}
	addRemoteFlag(cmd)
	return cmd
}

func addRemoteFlag(cmd *cobra.Command) {
	cmd.Flags().String("remote", "", "API base URL, e.g. http://127.0.0.1:8080/v0 (env SENGKETA_REMOTE)")
}

func docCmd() *cobra.Command {
	d := &cobra.Command{
		Use:   "doc",
		Short: "Store and fetch documents",
	}
	d.AddCommand(docPutCmd())
	d.AddCommand(docGetCmd())
	return d
}

func docPutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <file>",
		Short: "Store a document and print its reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			up, err := readUpload(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				ref, err := a.Service.StoreDocument(ctx, *up)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]string{"ref": ref})
				}
				fmt.Println(ref)
				return nil
			})
		},
	}
}

func docGetCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "get <ref>",
		Short: "Show document metadata, or write its content with --out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if out == "" {
					meta, err := a.Service.DocumentMetadata(ctx, args[0])
					if err != nil {
						return err
					}
					return printJSONOrTable(meta)
				}
				doc, err := a.Service.Document(ctx, args[0])
				if err != nil {
					return err
				}
				if info, err := os.Stat(out); err == nil && info.IsDir() {
					out = filepath.Join(out, doc.Filename())
				}
				if err := os.WriteFile(out, doc.Data, 0o644); err != nil {
					return err
				}
				fmt.Printf("wrote %s (%d bytes, %s)\n", out, len(doc.Data), doc.MimeType)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "file or directory to write the content to")
	return cmd
}

func roleCmd() *cobra.Command {
	r := &cobra.Command{
		Use:   "role",
		Short: "Inspect the role table",
		Long:  "Roles are assigned in sengketa.yml and reseeded every time the workspace is opened.",
	}
	r.AddCommand(roleListCmd())
	r.AddCommand(roleWhoamiCmd())
	return r
}

func roleListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List role assignments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Repo.ListRoleAssignments(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Role", "Identity", "Assigned"})
				for _, it := range items {
					tw.AppendRow(table.Row{it.Role, it.Identity, it.AssignedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func roleWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the role of the current caller",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				role, err := a.Whoami(ctx, caller())
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]string{"identity": caller(), "role": role.String()})
			})
		},
	}
}

func apikeyCmd() *cobra.Command {
	k := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys for the HTTP server",
	}
	k.AddCommand(apikeyCreateCmd())
	k.AddCommand(apikeyListCmd())
	k.AddCommand(apikeyRevokeCmd())
	return k
}

func apikeyCreateCmd() *cobra.Command {
	var identity, name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key bound to an identity; the key is printed once",
		RunE: func(cmd *cobra.Command, args []string) error {
			if identity == "" {
				identity = caller()
			}
			secret, err := newAPIKey()
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				key := domain.APIKey{
					ID:        uuid.NewString(),
					Identity:  identity,
					Name:      name,
					KeyHash:   repo.HashAPIKey(secret),
					CreatedAt: domain.FormatTime(time.Now()),
				}
				if err := a.Repo.InsertAPIKey(ctx, nil, key); err != nil {
					return err
				}
				return printJSONOrTable(map[string]string{"id": key.ID, "identity": identity, "key": secret})
			})
		},
	}
	cmd.Flags().StringVar(&identity, "identity", "", "identity the key authenticates as (default: --caller)")
	cmd.Flags().StringVar(&name, "name", "", "label")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	var identity string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				keys, err := a.Repo.ListAPIKeys(ctx, identity)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(keys)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Identity", "Name", "Created"})
				for _, k := range keys {
					tw.AppendRow(table.Row{k.ID, k.Identity, k.Name, k.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&identity, "identity", "", "identity filter")
	return cmd
}

func apikeyRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Repo.DeleteAPIKey(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("revoked", args[0])
				return nil
			})
		},
	}
}

func tokenCmd() *cobra.Command {
	var identity string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token with SENGKETA_JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("SENGKETA_JWT_SECRET")
			if secret == "" {
				return errors.New("SENGKETA_JWT_SECRET is required")
			}
			if identity == "" {
				identity = caller()
			}
			tok, err := server.SignToken(secret, identity, ttl)
			if err != nil {
				return err
			}
			fmt.Println(tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&identity, "identity", "", "token subject (default: --caller)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func logCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "log",
		Short: "Event log",
	}
	c.AddCommand(logTailCmd())
	c.AddCommand(logReceiptCmd())
	return c
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType string
	var caseID int64
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				f := repo.EventFilters{Type: evtType, Limit: n}
				if caseID != 0 {
					f.CaseID = &caseID
				}
				events, err := a.Engine.EventLog(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "TS", "Type", "Case", "Caller"})
				for _, e := range events {
					cid := ""
					if e.CaseID != nil {
						cid = fmt.Sprint(*e.CaseID)
					}
					tw.AppendRow(table.Row{e.ID, e.TS, e.Type, cid, e.Caller})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().Int64Var(&caseID, "case", 0, "case id filter")
	return cmd
}

func logReceiptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "receipt <receipt_id>",
		Short: "Show the event a receipt acknowledged",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				evt, err := a.Engine.EventForReceipt(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(evt)
			})
		},
	}
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			a, err := openApp(cmd.Context(), reg, slog.LevelInfo)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := server.CheckWebhookEvents(a.Config.Webhooks); err != nil {
				return err
			}

			cfg := server.FromApp(a)
			cfg.Gatherer = reg
			cfg.Auth.JWTSecret = os.Getenv("SENGKETA_JWT_SECRET")
			if cmd.Flags().Changed("base-path") {
				cfg.BasePath = basePath
			}
			if cfg.Auth.JWTSecret == "" && !cfg.Auth.AllowCallerHeader {
				a.Logger.Warn("SENGKETA_JWT_SECRET is unset; only API keys will authenticate")
			}
			handler, err := server.New(cfg)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("addr") && a.Config.Server.Addr != "" {
				addr = a.Config.Server.Addr
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			dispatcher := server.NewWebhookDispatcher(a.Repo, a.Config.Webhooks, a.Logger, a.Metrics)
			go dispatcher.Run(ctx)

			srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
			a.Logger.Info("serving sengketa API", "addr", addr, "base_path", cfg.BasePath, "documents", a.Config.Documents.Driver, "webhooks", len(a.Config.Webhooks))
			fmt.Printf("Serving Sengketa API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at %s/docs, metrics at /metrics)\n", addr, cfg.BasePath, cfg.BasePath, cfg.BasePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address (default from config)")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path (default from config)")
	return cmd
}

// --- helpers ---

func caller() string {
	return strings.TrimSpace(viper.GetString("caller"))
}

func newLogger(level slog.Level) *slog.Logger {
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadConfig() (*config.Config, error) {
	if path := viper.GetString("config"); path != "" {
		return config.FromFile(path)
	}
	cfg, err := config.LoadOptional(viper.GetString("workspace"))
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, app.ErrNotInitialized
	}
	return cfg, nil
}

func openApp(ctx context.Context, reg prometheus.Registerer, level slog.Level) (*app.App, error) {
	return app.Open(ctx, app.Options{
		Workspace:  viper.GetString("workspace"),
		ConfigPath: viper.GetString("config"),
		Logger:     newLogger(level),
		Registerer: reg,
	})
}

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	a, err := openApp(ctx, nil, slog.LevelWarn)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// withTransport runs fn against the remote API when --remote is set and
// against the local workspace otherwise.
func withTransport(cmd *cobra.Command, fn func(context.Context, ledger.Transport) error) error {
	ctx := cmd.Context()
	remote, _ := cmd.Flags().GetString("remote")
	if remote == "" {
		remote = viper.GetString("remote")
	}
	if remote != "" {
		c := sengketasdk.New(remote)
		c.APIKey = os.Getenv("SENGKETA_API_KEY")
		c.BearerToken = os.Getenv("SENGKETA_TOKEN")
		c.Caller = caller()
		return fn(ctx, c)
	}
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		return fn(ctx, a.Ledger)
	})
}

func extractFile(path string) (intake.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return intake.Result{}, err
	}
	return intake.Extract(string(data)), nil
}

func readUpload(path string) (*app.Upload, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &app.Upload{Name: filepath.Base(path), Data: data}, nil
}

func newAPIKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "sk_" + hex.EncodeToString(buf), nil
}

func operationNames() []string {
	out := make([]string, len(domain.Operations))
	for i, op := range domain.Operations {
		out[i] = string(op)
	}
	return out
}

func usageList(names []string) string {
	var b strings.Builder
	for _, n := range names {
		fmt.Fprintf(&b, "\n  %s %s", n, ledger.Usage[n])
	}
	return b.String()
}

func printReceipt(r domain.Receipt, err error) error {
	if err != nil {
		return err
	}
	if viper.GetBool("json") {
		return printJSON(r)
	}
	fmt.Printf("%s accepted: case %d is %s (receipt %s, event %d)\n", r.Operation, r.CaseID, r.Status, r.ID, r.EventID)
	return nil
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
