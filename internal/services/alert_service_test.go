package services

import (
	"testing"

	"github.com/alvarovalenzuelac/presuapp/internal/pagination"
	"github.com/alvarovalenzuelac/presuapp/internal/testutil"
)

func TestEmitAlert(t *testing.T) {
	t.Run("creates_unread", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAlertService(db)
		user := testutil.CreateTestUser(t, db)

		alert, err := svc.Emit(user.ID, "Atención", "Ya usaste el 80% de tu presupuesto.")
		testutil.AssertNoError(t, err)

		if alert.Read {
			t.Error("expected new alert to be unread")
		}
	})
}

func TestGetUserAlerts(t *testing.T) {
	t.Run("unread_filter", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAlertService(db)
		user := testutil.CreateTestUser(t, db)

		first, err := svc.Emit(user.ID, "Uno", "mensaje")
		testutil.AssertNoError(t, err)
		_, err = svc.Emit(user.ID, "Dos", "mensaje")
		testutil.AssertNoError(t, err)

		testutil.AssertNoError(t, svc.MarkRead(user.ID, first.ID))

		unread, err := svc.GetUserAlerts(user.ID, pagination.PageRequest{}, true)
		testutil.AssertNoError(t, err)
		if unread.TotalItems != 1 {
			t.Errorf("expected 1 unread alert, got %d", unread.TotalItems)
		}

		all, err := svc.GetUserAlerts(user.ID, pagination.PageRequest{}, false)
		testutil.AssertNoError(t, err)
		if all.TotalItems != 2 {
			t.Errorf("expected 2 alerts in total, got %d", all.TotalItems)
		}
	})
}

func TestMarkRead(t *testing.T) {
	t.Run("owner_only", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAlertService(db)
		owner := testutil.CreateTestUser(t, db)
		intruder := testutil.CreateTestUser(t, db)

		alert, err := svc.Emit(owner.ID, "Privado", "mensaje")
		testutil.AssertNoError(t, err)

		err = svc.MarkRead(intruder.ID, alert.ID)
		testutil.AssertAppError(t, err, "ALERT_NOT_FOUND")
	})
}
