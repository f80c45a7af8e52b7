package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/skooly-backend/internal/app"
	"github.com/yungbote/skooly-backend/internal/data/repos"
	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/jobs"
	"github.com/yungbote/skooly-backend/internal/modules/rag"
	"github.com/yungbote/skooly-backend/internal/platform/dbctx"
	"github.com/yungbote/skooly-backend/internal/platform/shutdown"
)

type idList []string

func (l *idList) String() string { return strings.Join(*l, ",") }
func (l *idList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

func main() {
	var materials idList
	var force, enqueue, dryRun, statsOnly bool
	var limit int
	flag.Var(&materials, "material", "material id to embed (repeatable); default is every material")
	flag.BoolVar(&force, "force", false, "re-embed materials that already have chunks")
	flag.BoolVar(&enqueue, "enqueue", false, "submit embed_material jobs instead of embedding inline")
	flag.BoolVar(&dryRun, "dry-run", false, "print the materials that would be embedded")
	flag.BoolVar(&statsOnly, "stats", false, "print embedding coverage and exit")
	flag.IntVar(&limit, "limit", 0, "limit number of materials processed")
	flag.Parse()

	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	application, err := app.New(ctx)
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	if statsOnly {
		st, err := application.Services.Embedding.Stats(ctx)
		if err != nil {
			fmt.Printf("stats: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("materials=%d embedded=%d chunks=%d coverage=%.1f%% missing=%d\n",
			st.TotalMaterials, st.EmbeddedMaterials, st.TotalChunks, st.Coverage, len(st.Missing))
		return
	}

	ids := make([]uuid.UUID, 0, len(materials))
	for _, s := range materials {
		id, err := uuid.Parse(s)
		if err != nil || id == uuid.Nil {
			fmt.Printf("skipping invalid material id %q\n", s)
			continue
		}
		ids = append(ids, id)
	}
	if len(materials) > 0 && len(ids) == 0 {
		fmt.Println("no valid material ids provided")
		return
	}

	dbc := dbctx.Context{Ctx: ctx}
	var rows []*domain.Material
	if len(ids) > 0 {
		rows, err = application.Repos.Material.GetByIDs(dbc, ids)
	} else {
		rows, err = application.Repos.Material.List(dbc, repos.MaterialFilter{Limit: limit})
	}
	if err != nil {
		fmt.Printf("load materials: %v\n", err)
		os.Exit(1)
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	if dryRun {
		for _, m := range rows {
			fmt.Printf("[dry-run] embed material_id=%s title=%q force=%t\n", m.ID, m.Title, force)
		}
		fmt.Printf("done; planned=%d\n", len(rows))
		return
	}

	if enqueue {
		enqueued := 0
		for _, m := range rows {
			_, created, err := application.Services.JobQueue.SubmitUnique(ctx, jobs.Spec{
				Type:        domain.JobTypeEmbedMaterial,
				OwnerUserID: m.UploaderID,
				EntityType:  "material",
				EntityID:    m.ID,
				Payload:     map[string]any{"material_id": m.ID.String(), "force": force},
			})
			if err != nil {
				fmt.Printf("enqueue failed for material %s: %v\n", m.ID, err)
				continue
			}
			if created {
				enqueued++
				fmt.Printf("enqueued embed_material for material_id=%s\n", m.ID)
			}
		}
		fmt.Printf("done; enqueued=%d\n", enqueued)
		return
	}

	selected := make([]uuid.UUID, 0, len(rows))
	for _, m := range rows {
		selected = append(selected, m.ID)
	}
	if len(selected) == 0 {
		fmt.Println("no materials to embed")
		return
	}
	reports, err := application.Services.Embedding.Backfill(ctx, selected, force)
	if err != nil {
		fmt.Printf("backfill: %v\n", err)
	}
	failed := 0
	for _, r := range reports {
		line := fmt.Sprintf("%s %s chunks=%d", r.MaterialID, r.Status, r.Chunks)
		if r.Error != "" {
			line += " error=" + r.Error
		}
		fmt.Println(line)
		if r.Status == rag.EmbedStatusFailed {
			failed++
		}
	}
	fmt.Printf("done; materials=%d failed=%d\n", len(reports), failed)
	if err != nil || failed > 0 {
		os.Exit(1)
	}
}
