package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/accesshub/accesshub-server/internal/models"
)

func TestCreateTenantDuplicateRegistration(t *testing.T) {
	store, mock := newMockStore(t)

	tenant := &models.Tenant{
		Name:               "Acme",
		RegistrationNumber: "REG-1",
	}

	mock.ExpectExec("INSERT INTO tenants").
		WillReturnError(errors.New(`pq: duplicate key value violates unique constraint "tenants_registration_number_key"`))

	if err := store.CreateTenant(context.Background(), tenant); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("err = %v, want %v", err, ErrDuplicateKey)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDeactivateTenantCascadesToUsers(t *testing.T) {
	store, mock := newMockStore(t)
	tenantID := uuid.New()
	by := uuid.New()

	// Tenant flip and user cascade commit together or not at all
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tenants SET").
		WithArgs(tenantID, sqlmock.AnyArg(), by).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET").
		WithArgs(tenantID, sqlmock.AnyArg(), by).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	if err := store.DeactivateTenant(context.Background(), tenantID, by); err != nil {
		t.Fatalf("DeactivateTenant: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDeactivateTenantUnknown(t *testing.T) {
	store, mock := newMockStore(t)
	tenantID := uuid.New()
	by := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tenants SET").
		WithArgs(tenantID, sqlmock.AnyArg(), by).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if err := store.DeactivateTenant(context.Background(), tenantID, by); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want %v", err, ErrNotFound)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDeactivateTenantRollsBackOnCascadeFailure(t *testing.T) {
	store, mock := newMockStore(t)
	tenantID := uuid.New()
	by := uuid.New()

	boom := errors.New("cascade failed")

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tenants SET").
		WithArgs(tenantID, sqlmock.AnyArg(), by).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET").
		WillReturnError(boom)
	mock.ExpectRollback()

	if err := store.DeactivateTenant(context.Background(), tenantID, by); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
