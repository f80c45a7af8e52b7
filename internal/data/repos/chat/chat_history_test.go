package chat

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/skooly-backend/internal/data/repos/testutil"
	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/platform/dbctx"
)

func TestChatHistoryRepo(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewChatHistoryRepo(db, testutil.Logger(t))

	base := time.Now().Add(-time.Hour)
	for i, msg := range []string{"first", "second", "third"} {
		if _, err := repo.Create(dbc, &domain.ChatHistory{
			UserID:    "user-a",
			Message:   msg,
			Response:  "answer " + msg,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("Create %s: %v", msg, err)
		}
	}
	if _, err := repo.Create(dbc, &domain.ChatHistory{UserID: "user-b", Message: "other"}); err != nil {
		t.Fatalf("Create other: %v", err)
	}

	rows, err := repo.ListByUser(dbc, "user-a", 2)
	if err != nil || len(rows) != 2 {
		t.Fatalf("ListByUser: err=%v len=%d", err, len(rows))
	}
	if rows[0].Message != "third" || rows[1].Message != "second" {
		t.Fatalf("ListByUser order: %s, %s", rows[0].Message, rows[1].Message)
	}

	n, err := repo.DeleteByUser(dbc, "user-a")
	if err != nil || n != 3 {
		t.Fatalf("DeleteByUser: n=%d err=%v", n, err)
	}
	rows, _ = repo.ListByUser(dbc, "user-b", 0)
	if len(rows) != 1 {
		t.Fatalf("other user's history should survive, len=%d", len(rows))
	}
}
