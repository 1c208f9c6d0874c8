// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// docs_cmd.go - Document management.
//
// Examples:
//   docchat docs list
//   docchat docs upload plan.pdf notes.md
//   docchat docs delete 3f2c... --confirm
//   docchat docs watch ~/Documents/inbox

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"text/tabwriter"

	"github.com/jeranaias/docchat/internal/model"
	"github.com/jeranaias/docchat/internal/util"
	"github.com/jeranaias/docchat/internal/watch"
)

const docsUsage = "docchat docs [list|upload FILE...|delete ID --confirm|watch DIR]"

// HandleDocs dispatches the docs subcommands.
func HandleDocs(app *App, args Args) error {
	if err := app.RequireAuth(); err != nil {
		return err
	}
	p := NewArgParser(args.Raw, "confirm")

	switch p.Subcommand() {
	case "", "list", "ls":
		return docsList(app, args)
	case "upload", "add":
		return docsUpload(app, args, p.PositionalFrom(1))
	case "delete", "rm":
		return docsDelete(app, args, p.Positional(1), p.BoolFlag("confirm"))
	case "watch":
		return docsWatch(app, p.Positional(1))
	default:
		return usageErr("docs", "unknown subcommand "+p.Subcommand(), docsUsage)
	}
}

func docsList(app *App, args Args) error {
	res := app.Client.ListDocuments(context.Background())
	if !res.OK() {
		return res.Err
	}
	docs := res.Value

	if args.JSON {
		return NewJSONResponse("docs list", docs).Fprint(app.Out)
	}
	if len(docs) == 0 {
		fmt.Fprintln(app.Out, "No documents uploaded yet.")
		return nil
	}

	tw := tabwriter.NewWriter(app.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILENAME\tSIZE\tSTATUS\tINDEXED")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			util.TruncateRunes(d.ID, 12),
			util.TruncateWidth(d.Filename, 40),
			util.HumanBytes(d.FileSize),
			documentStatus(d),
			yesNo(d.Indexed()),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if !args.Quiet {
		fmt.Fprintln(app.Out, DimStyle.Render(fmt.Sprintf("%d of %d documents indexed", model.CountIndexed(docs), len(docs))))
	}
	return nil
}

func docsUpload(app *App, args Args, paths []string) error {
	if len(paths) == 0 {
		return usageErr("docs upload", "at least one file is required", "docchat docs upload FILE...")
	}

	var uploaded []model.Document
	var failed int
	for _, path := range paths {
		res := app.Client.UploadFile(context.Background(), path)
		if !res.OK() {
			if res.AuthExpired {
				app.Auth.Clear()
				return ErrNotSignedIn
			}
			failed++
			fmt.Fprintln(app.ErrOut, RenderStatus(false, filepath.Base(path)+": "+res.Err.Error()))
			continue
		}
		uploaded = append(uploaded, res.Value)
		if !args.JSON {
			fmt.Fprintln(app.Out, RenderStatus(true, fmt.Sprintf("%s uploaded (%s)", res.Value.Filename, res.Value.ID)))
		}
	}

	if args.JSON {
		if err := NewJSONResponse("docs upload", uploaded).Fprint(app.Out); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(paths))
	}
	return nil
}

func docsDelete(app *App, args Args, id string, confirm bool) error {
	if id == "" {
		return usageErr("docs delete", "a document ID is required", "docchat docs delete ID --confirm")
	}
	if err := RequireConfirmation(confirm, "Delete document "+id, "docchat docs delete "+id, args.JSON); err != nil {
		return err
	}

	res := app.Client.DeleteDocument(context.Background(), id)
	if !res.OK() {
		if res.AuthExpired {
			app.Auth.Clear()
			return ErrNotSignedIn
		}
		return res.Err
	}
	if args.JSON {
		return NewJSONResponse("docs delete", map[string]string{"deleted": id}).Fprint(app.Out)
	}
	fmt.Fprintln(app.Out, RenderStatus(true, "Deleted "+id))
	return nil
}

// docsWatch uploads files dropped into dir until interrupted.
func docsWatch(app *App, dir string) error {
	if dir == "" {
		return usageErr("docs watch", "a directory is required", "docchat docs watch DIR")
	}

	w, err := watch.New(watch.Config{
		Dir:           dir,
		Extensions:    app.Config.Watch.Extensions,
		MaxFileSize:   int64(app.Config.Watch.MaxFileMB) * 1024 * 1024,
		UploadsPerSec: app.Config.Watch.UploadsPerSec,
	}, app.Client, app.Log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	events := make(chan watch.Event)
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx, events) }()

	fmt.Fprintln(app.Out, DimStyle.Render("Watching "+dir+" (Ctrl+C to stop)"))
	for ev := range events {
		name := filepath.Base(ev.Path)
		switch {
		case ev.AuthExpired:
			stop()
			app.Auth.Clear()
			<-errc
			return ErrNotSignedIn
		case ev.Err != nil:
			fmt.Fprintln(app.ErrOut, RenderStatus(false, name+": "+ev.Err.Error()))
		case ev.Skipped != "":
			fmt.Fprintln(app.Out, WarningStyle.Render("skipped ")+name+": "+ev.Skipped)
		default:
			fmt.Fprintln(app.Out, RenderStatus(true, name+" uploaded ("+ev.Document.ID+")"))
		}
	}
	return <-errc
}

func documentStatus(d model.Document) string {
	if d.ProcessingStatus == "" {
		return "-"
	}
	if d.ProcessingStatus == model.ProcessingFailed && d.ProcessingError != "" {
		return d.ProcessingStatus + ": " + util.TruncateRunes(d.ProcessingError, 30)
	}
	return d.ProcessingStatus
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
