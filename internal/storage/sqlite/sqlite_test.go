package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"messbook/internal/errs"
	"messbook/internal/models"
	"messbook/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedMess(t *testing.T, store *SQLiteStore, memberIDs ...string) *models.Mess {
	t.Helper()
	ctx := context.Background()

	mess := &models.Mess{Name: "Test Mess", ManagerID: memberIDs[0], InviteCode: "ABCD1234"}
	if err := store.CreateMess(ctx, mess); err != nil {
		t.Fatalf("CreateMess failed: %v", err)
	}
	for i, id := range memberIDs {
		role := models.RoleMember
		if i == 0 {
			role = models.RoleManager
		}
		member := &models.Member{ID: id, MessID: mess.ID, DisplayName: id, Role: role}
		if err := store.CreateMember(ctx, member); err != nil {
			t.Fatalf("CreateMember failed: %v", err)
		}
	}
	return mess
}

func TestMessAndMembers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mess := seedMess(t, store, "alice", "bob", "carol")

	t.Run("GetMess by id and invite code", func(t *testing.T) {
		got, err := store.GetMess(ctx, mess.ID)
		if err != nil {
			t.Fatalf("GetMess failed: %v", err)
		}
		if got.Name != "Test Mess" || got.ManagerID != "alice" {
			t.Errorf("unexpected mess: %+v", got)
		}

		byCode, err := store.GetMessByInviteCode(ctx, "ABCD1234")
		if err != nil {
			t.Fatalf("GetMessByInviteCode failed: %v", err)
		}
		if byCode.ID != mess.ID {
			t.Errorf("invite code resolved to wrong mess: %s", byCode.ID)
		}
	})

	t.Run("GetMess returns NotFoundError for unknown id", func(t *testing.T) {
		_, err := store.GetMess(ctx, "nope")
		var notFound *errs.NotFoundError
		if !errors.As(err, &notFound) {
			t.Errorf("expected NotFoundError, got %v", err)
		}
	})

	t.Run("ListMembersByRole finds only managers", func(t *testing.T) {
		managers, err := store.ListMembersByRole(ctx, mess.ID, models.RoleManager)
		if err != nil {
			t.Fatalf("ListMembersByRole failed: %v", err)
		}
		if len(managers) != 1 || managers[0].ID != "alice" {
			t.Errorf("expected alice as the only manager, got %+v", managers)
		}
	})

	t.Run("TransferManager swaps roles atomically", func(t *testing.T) {
		if err := store.TransferManager(ctx, mess.ID, "alice", "bob"); err != nil {
			t.Fatalf("TransferManager failed: %v", err)
		}

		managers, err := store.ListMembersByRole(ctx, mess.ID, models.RoleManager)
		if err != nil {
			t.Fatalf("ListMembersByRole failed: %v", err)
		}
		if len(managers) != 1 || managers[0].ID != "bob" {
			t.Errorf("expected bob as the only manager, got %+v", managers)
		}

		got, err := store.GetMess(ctx, mess.ID)
		if err != nil {
			t.Fatalf("GetMess failed: %v", err)
		}
		if got.ManagerID != "bob" {
			t.Errorf("mess manager_id not updated: %s", got.ManagerID)
		}
	})

	t.Run("TransferManager from non-manager fails without side effects", func(t *testing.T) {
		err := store.TransferManager(ctx, mess.ID, "alice", "carol")
		var notFound *errs.NotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("expected NotFoundError, got %v", err)
		}
		managers, _ := store.ListMembersByRole(ctx, mess.ID, models.RoleManager)
		if len(managers) != 1 || managers[0].ID != "bob" {
			t.Errorf("failed transfer must not change roles, got %+v", managers)
		}
	})
}

func TestMealStatuses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mess := seedMess(t, store, "alice", "bob")

	t.Run("GetMealStatus returns nil for absent day", func(t *testing.T) {
		got, err := store.GetMealStatus(ctx, mess.ID, "alice", "2026-08-01")
		if err != nil {
			t.Fatalf("GetMealStatus failed: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil for absent day, got %+v", got)
		}
	})

	t.Run("UpsertMealStatus overwrites the whole row", func(t *testing.T) {
		first := &models.MealStatus{
			MessID: mess.ID, MemberID: "alice", Date: "2026-08-01",
			Breakfast: 1, Lunch: 1, Dinner: 1, GuestLunch: 2,
		}
		if err := store.UpsertMealStatus(ctx, first); err != nil {
			t.Fatalf("UpsertMealStatus failed: %v", err)
		}

		second := &models.MealStatus{
			MessID: mess.ID, MemberID: "alice", Date: "2026-08-01",
			Lunch: 0.5, IsSetByUser: true,
		}
		if err := store.UpsertMealStatus(ctx, second); err != nil {
			t.Fatalf("UpsertMealStatus failed: %v", err)
		}

		got, err := store.GetMealStatus(ctx, mess.ID, "alice", "2026-08-01")
		if err != nil {
			t.Fatalf("GetMealStatus failed: %v", err)
		}
		if got.Breakfast != 0 || got.Lunch != 0.5 || got.GuestLunch != 0 || !got.IsSetByUser {
			t.Errorf("row not fully overwritten: %+v", got)
		}
	})

	t.Run("SumMeals counts guests and respects bounds", func(t *testing.T) {
		statuses := []*models.MealStatus{
			{MessID: mess.ID, MemberID: "alice", Date: "2026-08-02", Breakfast: 1, GuestDinner: 1.5},
			{MessID: mess.ID, MemberID: "bob", Date: "2026-08-02", Lunch: 1},
			{MessID: mess.ID, MemberID: "alice", Date: "2026-09-01", Dinner: 1}, // outside range
		}
		for _, st := range statuses {
			if err := store.UpsertMealStatus(ctx, st); err != nil {
				t.Fatalf("UpsertMealStatus failed: %v", err)
			}
		}

		total, err := store.SumMeals(ctx, mess.ID, "", "2026-08-01", "2026-08-31")
		if err != nil {
			t.Fatalf("SumMeals failed: %v", err)
		}
		// 0.5 from the overwrite test plus 1 + 1.5 + 1 = 4.0
		if total != 4.0 {
			t.Errorf("mess-wide total: expected 4.0, got %v", total)
		}

		aliceTotal, err := store.SumMeals(ctx, mess.ID, "alice", "2026-08-01", "2026-08-31")
		if err != nil {
			t.Fatalf("SumMeals failed: %v", err)
		}
		if aliceTotal != 3.0 {
			t.Errorf("alice total: expected 3.0, got %v", aliceTotal)
		}
	})
}

func TestTransactions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mess := seedMess(t, store, "alice", "bob")

	tx := &models.Transaction{
		MessID: mess.ID, MemberID: "bob", Kind: models.KindDeposit,
		Amount: 500, Date: "2026-08-10", Status: models.StatusPending, CreatedBy: "bob",
	}
	if err := store.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}
	if tx.ID == "" || tx.CreatedAt == 0 {
		t.Fatalf("expected generated ID and CreatedAt, got %+v", tx)
	}

	t.Run("UpdateTransactionStatus applies compare-and-set", func(t *testing.T) {
		if err := store.UpdateTransactionStatus(ctx, tx.ID, models.StatusPending, models.StatusApproved); err != nil {
			t.Fatalf("UpdateTransactionStatus failed: %v", err)
		}

		// Second transition from pending must conflict.
		err := store.UpdateTransactionStatus(ctx, tx.ID, models.StatusPending, models.StatusApproved)
		var conflict *errs.StateConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("expected StateConflictError, got %v", err)
		}
		if conflict.Current != string(models.StatusApproved) {
			t.Errorf("conflict should report current status, got %+v", conflict)
		}
	})

	t.Run("SumApproved ignores pending records", func(t *testing.T) {
		pending := &models.Transaction{
			MessID: mess.ID, MemberID: "bob", Kind: models.KindDeposit,
			Amount: 9999, Date: "2026-08-11", Status: models.StatusPending, CreatedBy: "bob",
		}
		if err := store.CreateTransaction(ctx, pending); err != nil {
			t.Fatalf("CreateTransaction failed: %v", err)
		}

		total, err := store.SumApproved(ctx, mess.ID, "bob", models.KindDeposit, "2026-08-01", "2026-08-31")
		if err != nil {
			t.Fatalf("SumApproved failed: %v", err)
		}
		if total != 500 {
			t.Errorf("expected 500, got %v", total)
		}
	})

	t.Run("CountPendingReview includes deletion requests", func(t *testing.T) {
		if err := store.UpdateTransactionStatus(ctx, tx.ID, models.StatusApproved, models.StatusDeletionRequested); err != nil {
			t.Fatalf("UpdateTransactionStatus failed: %v", err)
		}
		count, err := store.CountPendingReview(ctx, mess.ID)
		if err != nil {
			t.Fatalf("CountPendingReview failed: %v", err)
		}
		if count != 2 { // one pending + one deletion_requested
			t.Errorf("expected 2, got %d", count)
		}

		// A deletion-requested record still counts toward sums.
		total, err := store.SumApproved(ctx, mess.ID, "bob", models.KindDeposit, "2026-08-01", "2026-08-31")
		if err != nil {
			t.Fatalf("SumApproved failed: %v", err)
		}
		if total != 500 {
			t.Errorf("expected deletion-requested deposit to keep counting, got %v", total)
		}
	})

	t.Run("DeleteTransaction removes the record", func(t *testing.T) {
		if err := store.DeleteTransaction(ctx, tx.ID); err != nil {
			t.Fatalf("DeleteTransaction failed: %v", err)
		}
		_, err := store.GetTransaction(ctx, tx.ID)
		var notFound *errs.NotFoundError
		if !errors.As(err, &notFound) {
			t.Errorf("expected NotFoundError after delete, got %v", err)
		}
	})
}

func TestTransactionPaging(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mess := seedMess(t, store, "alice")

	dates := []string{"2026-08-01", "2026-08-02", "2026-08-03", "2026-08-03", "2026-08-04"}
	for _, date := range dates {
		tx := &models.Transaction{
			MessID: mess.ID, MemberID: "alice", Kind: models.KindExpense,
			Amount: 10, Description: "x", Date: date,
			Status: models.StatusApproved, CreatedBy: "alice",
		}
		if err := store.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("CreateTransaction failed: %v", err)
		}
	}

	var seen []string
	page, err := store.ListTransactionsPage(ctx, mess.ID, storage.Page{Limit: 2})
	if err != nil {
		t.Fatalf("ListTransactionsPage failed: %v", err)
	}
	for len(page) > 0 {
		for _, tx := range page {
			seen = append(seen, tx.ID)
		}
		last := page[len(page)-1]
		page, err = store.ListTransactionsPage(ctx, mess.ID, storage.Page{
			AfterDate: last.Date, AfterID: last.ID, Limit: 2,
		})
		if err != nil {
			t.Fatalf("ListTransactionsPage failed: %v", err)
		}
	}

	if len(seen) != len(dates) {
		t.Fatalf("paging visited %d records, want %d", len(seen), len(dates))
	}
	unique := make(map[string]bool, len(seen))
	for _, id := range seen {
		if unique[id] {
			t.Errorf("record %s returned twice", id)
		}
		unique[id] = true
	}
}

func TestDeviceTokens(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.AddDeviceToken(ctx, "alice", "tok-1"); err != nil {
		t.Fatalf("AddDeviceToken failed: %v", err)
	}
	if err := store.AddDeviceToken(ctx, "alice", "tok-2"); err != nil {
		t.Fatalf("AddDeviceToken failed: %v", err)
	}

	t.Run("re-registration moves ownership", func(t *testing.T) {
		if err := store.AddDeviceToken(ctx, "bob", "tok-1"); err != nil {
			t.Fatalf("AddDeviceToken failed: %v", err)
		}

		bobTokens, err := store.ListDeviceTokens(ctx, []string{"bob"})
		if err != nil {
			t.Fatalf("ListDeviceTokens failed: %v", err)
		}
		if len(bobTokens) != 1 || bobTokens[0].Token != "tok-1" {
			t.Errorf("expected bob to own tok-1, got %+v", bobTokens)
		}

		aliceTokens, err := store.ListDeviceTokens(ctx, []string{"alice"})
		if err != nil {
			t.Fatalf("ListDeviceTokens failed: %v", err)
		}
		if len(aliceTokens) != 1 || aliceTokens[0].Token != "tok-2" {
			t.Errorf("expected alice to keep only tok-2, got %+v", aliceTokens)
		}
	})

	t.Run("remove is exact-match and idempotent", func(t *testing.T) {
		if err := store.RemoveDeviceToken(ctx, "tok-2"); err != nil {
			t.Fatalf("RemoveDeviceToken failed: %v", err)
		}
		if err := store.RemoveDeviceToken(ctx, "tok-2"); err != nil {
			t.Fatalf("removing an unknown token should be a no-op: %v", err)
		}
		left, _ := store.ListDeviceTokens(ctx, []string{"alice", "bob"})
		if len(left) != 1 || left[0].Token != "tok-1" {
			t.Errorf("expected only tok-1 left, got %+v", left)
		}
	})
}

func TestNotifications(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mess := seedMess(t, store, "alice")

	n := &models.Notification{MessID: mess.ID, UserID: "alice", Message: "hello", Link: "/x"}
	if err := store.CreateNotification(ctx, n); err != nil {
		t.Fatalf("CreateNotification failed: %v", err)
	}

	list, err := store.ListNotifications(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("ListNotifications failed: %v", err)
	}
	if len(list) != 1 || list[0].Message != "hello" || list[0].IsRead {
		t.Fatalf("unexpected notifications: %+v", list)
	}

	if err := store.MarkNotificationRead(ctx, n.ID, "bob"); err == nil {
		t.Error("marking someone else's notification read should fail")
	}
	if err := store.MarkNotificationRead(ctx, n.ID, "alice"); err != nil {
		t.Fatalf("MarkNotificationRead failed: %v", err)
	}
	list, _ = store.ListNotifications(ctx, "alice", 10)
	if !list[0].IsRead {
		t.Error("notification should be read")
	}
}
