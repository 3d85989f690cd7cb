package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/accesshub/accesshub-server/internal/models"
)

func TestReplaceUserAssignmentsTransaction(t *testing.T) {
	store, mock := newMockStore(t)
	userID := uuid.New()
	by := uuid.New()

	assignments := []*models.UserAssignment{
		{ApplicationID: uuid.New(), AppRole: models.RoleTenantOperator, CreatedBy: by},
		{ApplicationID: uuid.New(), AppRole: models.RoleTenantSupervisor, CreatedBy: by},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM user_assignments WHERE user_id = \$1`).
		WithArgs(userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	for _, assignment := range assignments {
		mock.ExpectExec("INSERT INTO user_assignments").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), by, userID, assignment.ApplicationID, assignment.AppRole).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	if err := store.ReplaceUserAssignments(context.Background(), userID, assignments); err != nil {
		t.Fatalf("ReplaceUserAssignments: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestReplaceUserAssignmentsRollsBackOnInsertFailure(t *testing.T) {
	store, mock := newMockStore(t)
	userID := uuid.New()

	assignments := []*models.UserAssignment{
		{ApplicationID: uuid.New(), AppRole: models.RoleTenantOperator},
	}

	boom := errors.New("insert failed")

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM user_assignments WHERE user_id = \$1`).
		WithArgs(userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_assignments").
		WillReturnError(boom)
	mock.ExpectRollback()

	if err := store.ReplaceUserAssignments(context.Background(), userID, assignments); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestReplaceUserAssignmentsEmptySet(t *testing.T) {
	store, mock := newMockStore(t)
	userID := uuid.New()

	// An empty desired set is just the delete
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM user_assignments WHERE user_id = \$1`).
		WithArgs(userID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	if err := store.ReplaceUserAssignments(context.Background(), userID, nil); err != nil {
		t.Fatalf("ReplaceUserAssignments: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
