package main

import (
	"fmt"
	"io"
	"strings"

	"outfitlens/internal/domain"
	"outfitlens/internal/i18n"
	"outfitlens/internal/wizard"
)

var steps = []wizard.Step{wizard.StepSubjectPhoto, wizard.StepGarmentPhoto, wizard.StepConfirm, wizard.StepResult}

// progressBar renders the four step titles with the current one bracketed.
func progressBar(locale string, current wizard.Step) string {
	parts := make([]string, len(steps))
	for i, step := range steps {
		title := fmt.Sprintf("%d %s", int(step), i18n.T(locale, step.Title()))
		if step == current {
			title = "[" + title + "]"
		}
		parts[i] = title
	}
	return strings.Join(parts, " > ")
}

func describeImage(locale string, img *domain.Image) string {
	if img == nil {
		return "-"
	}
	return fmt.Sprintf("%s %dx%d %s", i18n.Label(locale, string(img.Type)), img.Width, img.Height, img.URL)
}

// renderSnapshot writes a terminal view of one wizard snapshot.
func renderSnapshot(w io.Writer, locale string, snap wizard.Snapshot) {
	fmt.Fprintln(w, progressBar(locale, snap.Step))
	if snap.SubjectImage != nil {
		fmt.Fprintf(w, "  subject: %s\n", describeImage(locale, snap.SubjectImage))
	}
	if snap.GarmentImage != nil {
		fmt.Fprintf(w, "  garment: %s\n", describeImage(locale, snap.GarmentImage))
	}

	switch snap.Phase {
	case wizard.PhaseSubmitting:
		fmt.Fprintf(w, "  %s\n", i18n.T(locale, "Generating your look..."))
	case wizard.PhasePolling:
		status := domain.GenerationPending
		if snap.ActiveJob != nil && snap.ActiveJob.Status != "" {
			status = snap.ActiveJob.Status
		}
		fmt.Fprintf(w, "  %s (%s, %s)\n", i18n.T(locale, "Generating your look..."), snap.JobID(), status)
	case wizard.PhaseSucceeded:
		fmt.Fprintf(w, "  %s\n", i18n.T(locale, "Look Transformed!"))
		fmt.Fprintf(w, "  result: %s\n", describeImage(locale, snap.ResultImage()))
	case wizard.PhaseFailed:
		fmt.Fprintf(w, "  ! %s\n", i18n.T(locale, snap.ErrorText))
		return
	}
	if snap.ErrorText != "" {
		fmt.Fprintf(w, "  ! %s\n", i18n.T(locale, snap.ErrorText))
	}
}

func renderHistory(w io.Writer, locale string, page domain.Page[domain.Generation]) {
	if len(page.Items) == 0 {
		fmt.Fprintln(w, "no generations yet")
		return
	}
	for _, gen := range page.Items {
		line := fmt.Sprintf("%s  %-10s  %s", gen.CreatedAt.Local().Format("2006-01-02 15:04"), gen.Status, gen.ID)
		switch {
		case gen.ResultImage != nil:
			line += "  " + gen.ResultImage.URL
		case gen.ErrorMessage != "":
			line += "  " + i18n.T(locale, gen.ErrorMessage)
		}
		fmt.Fprintln(w, line)
	}
	if page.HasMore {
		fmt.Fprintf(w, "page %d of %d results, use -page %d for more\n", page.Page, page.Total, page.Page+1)
	}
}

func renderImages(w io.Writer, locale string, page domain.Page[domain.Image]) {
	if len(page.Items) == 0 {
		fmt.Fprintln(w, "no images")
		return
	}
	for _, img := range page.Items {
		fmt.Fprintf(w, "%s  %s  %d KB\n", img.ID, describeImage(locale, &img), img.FileSize/1024)
	}
	if page.HasMore {
		fmt.Fprintf(w, "page %d of %d results, use -page %d for more\n", page.Page, page.Total, page.Page+1)
	}
}
