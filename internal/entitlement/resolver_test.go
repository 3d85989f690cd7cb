package entitlement

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/accesshub/accesshub-server/internal/apperr"
	"github.com/accesshub/accesshub-server/internal/auth"
	"github.com/accesshub/accesshub-server/internal/models"
	"github.com/accesshub/accesshub-server/internal/storage"
)

type licenseKey struct {
	tenantID      uuid.UUID
	applicationID uuid.UUID
}

type assignmentKey struct {
	userID        uuid.UUID
	applicationID uuid.UUID
}

type fakeDirectory struct {
	users        map[uuid.UUID]*models.User
	applications map[uuid.UUID]*models.Application
	licenses     map[licenseKey]*models.TenantLicense
	assignments  map[assignmentKey]*models.UserAssignment

	replaceErr error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users:        make(map[uuid.UUID]*models.User),
		applications: make(map[uuid.UUID]*models.Application),
		licenses:     make(map[licenseKey]*models.TenantLicense),
		assignments:  make(map[assignmentKey]*models.UserAssignment),
	}
}

func (f *fakeDirectory) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return user, nil
}

func (f *fakeDirectory) GetApplication(_ context.Context, id uuid.UUID) (*models.Application, error) {
	app, ok := f.applications[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return app, nil
}

func (f *fakeDirectory) GetLicense(_ context.Context, tenantID, applicationID uuid.UUID) (*models.TenantLicense, error) {
	license, ok := f.licenses[licenseKey{tenantID, applicationID}]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return license, nil
}

func (f *fakeDirectory) ListActiveApplications(_ context.Context) ([]*models.Application, error) {
	var apps []*models.Application
	for _, app := range f.applications {
		if app.Active {
			apps = append(apps, app)
		}
	}
	sortApps(apps)
	return apps, nil
}

func (f *fakeDirectory) ListLicensedApplications(_ context.Context, tenantID uuid.UUID, now time.Time) ([]*models.Application, error) {
	var apps []*models.Application
	for key, license := range f.licenses {
		if key.tenantID != tenantID || !license.Effective(now) {
			continue
		}
		if app, ok := f.applications[key.applicationID]; ok && app.Active {
			apps = append(apps, app)
		}
	}
	sortApps(apps)
	return apps, nil
}

func (f *fakeDirectory) ListAssignedApplications(ctx context.Context, userID, tenantID uuid.UUID, now time.Time) ([]*models.Application, error) {
	licensed, _ := f.ListLicensedApplications(ctx, tenantID, now)
	var apps []*models.Application
	for _, app := range licensed {
		if _, ok := f.assignments[assignmentKey{userID, app.ID}]; ok {
			apps = append(apps, app)
		}
	}
	return apps, nil
}

func (f *fakeDirectory) GetUserAssignment(_ context.Context, userID, applicationID uuid.UUID) (*models.UserAssignment, error) {
	assignment, ok := f.assignments[assignmentKey{userID, applicationID}]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return assignment, nil
}

func (f *fakeDirectory) ListUserAssignments(_ context.Context, userID uuid.UUID) ([]*models.UserAssignment, error) {
	var assignments []*models.UserAssignment
	for key, assignment := range f.assignments {
		if key.userID == userID {
			assignments = append(assignments, assignment)
		}
	}
	return assignments, nil
}

func (f *fakeDirectory) ReplaceUserAssignments(_ context.Context, userID uuid.UUID, assignments []*models.UserAssignment) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	for key := range f.assignments {
		if key.userID == userID {
			delete(f.assignments, key)
		}
	}
	for _, assignment := range assignments {
		f.assignments[assignmentKey{userID, assignment.ApplicationID}] = assignment
	}
	return nil
}

func sortApps(apps []*models.Application) {
	sort.Slice(apps, func(i, j int) bool { return apps[i].Name < apps[j].Name })
}

type fakeRecorder struct {
	events []*models.AccessEvent
}

func (f *fakeRecorder) RecordAccess(_ context.Context, event *models.AccessEvent) {
	f.events = append(f.events, event)
}

func (f *fakeDirectory) addApplication(name string, active bool) *models.Application {
	app := &models.Application{
		Name: name,
		URL:  "https://" + name + ".example.com",
	}
	app.ID = uuid.New()
	app.Active = active
	f.applications[app.ID] = app
	return app
}

func (f *fakeDirectory) addLicense(tenantID, applicationID uuid.UUID, active bool, expiresAt *time.Time) *models.TenantLicense {
	license := &models.TenantLicense{
		TenantID:      tenantID,
		ApplicationID: applicationID,
		ExpiresAt:     expiresAt,
	}
	license.ID = uuid.New()
	license.Active = active
	f.licenses[licenseKey{tenantID, applicationID}] = license
	return license
}

func (f *fakeDirectory) addUser(role models.Role, tenantID *uuid.UUID) *models.User {
	user := &models.User{Role: role, TenantID: tenantID}
	user.ID = uuid.New()
	user.Active = true
	f.users[user.ID] = user
	return user
}

func (f *fakeDirectory) addAssignment(userID, applicationID uuid.UUID, role models.Role) {
	f.assignments[assignmentKey{userID, applicationID}] = &models.UserAssignment{
		ID:            uuid.New(),
		UserID:        userID,
		ApplicationID: applicationID,
		AppRole:       role,
	}
}

func testResolver(dir *fakeDirectory, rec *fakeRecorder, now time.Time) *Resolver {
	r := NewResolver(dir, rec)
	r.now = func() time.Time { return now }
	return r
}

func actorFor(user *models.User) auth.Identity {
	return auth.Identity{ID: user.ID, Role: user.Role, TenantID: user.TenantID}
}

func TestAvailableApplicationsPerRole(t *testing.T) {
	now := time.Now()
	dir := newFakeDirectory()
	rec := &fakeRecorder{}
	resolver := testResolver(dir, rec, now)

	tenantID := uuid.New()
	appA := dir.addApplication("alpha", true)
	appB := dir.addApplication("bravo", true)
	dir.addApplication("charlie", true)

	// alpha licensed and current, bravo licensed but expired,
	// charlie unlicensed
	dir.addLicense(tenantID, appA.ID, true, nil)
	expired := now.Add(-time.Hour)
	dir.addLicense(tenantID, appB.ID, true, &expired)

	super := dir.addUser(models.RoleSuperAdmin, nil)
	admin := dir.addUser(models.RoleTenantAdmin, &tenantID)
	operator := dir.addUser(models.RoleTenantOperator, &tenantID)
	dir.addAssignment(operator.ID, appA.ID, models.RoleTenantOperator)

	apps, err := resolver.AvailableApplications(context.Background(), actorFor(super))
	if err != nil {
		t.Fatalf("super admin: %v", err)
	}
	if len(apps) != 3 {
		t.Errorf("super admin sees %d apps, want 3", len(apps))
	}

	apps, err = resolver.AvailableApplications(context.Background(), actorFor(admin))
	if err != nil {
		t.Fatalf("tenant admin: %v", err)
	}
	if len(apps) != 1 || apps[0].ID != appA.ID {
		t.Errorf("tenant admin sees %v, want just alpha", appNames(apps))
	}

	apps, err = resolver.AvailableApplications(context.Background(), actorFor(operator))
	if err != nil {
		t.Fatalf("operator: %v", err)
	}
	if len(apps) != 1 || apps[0].ID != appA.ID {
		t.Errorf("operator sees %v, want just alpha", appNames(apps))
	}
}

func appNames(apps []*models.Application) []string {
	names := make([]string, len(apps))
	for i, app := range apps {
		names[i] = app.Name
	}
	return names
}

func TestRequestAccessGrantHappyPath(t *testing.T) {
	now := time.Now()
	dir := newFakeDirectory()
	rec := &fakeRecorder{}
	resolver := testResolver(dir, rec, now)

	tenantID := uuid.New()
	app := dir.addApplication("alpha", true)
	dir.addLicense(tenantID, app.ID, true, nil)
	operator := dir.addUser(models.RoleTenantOperator, &tenantID)
	dir.addAssignment(operator.ID, app.ID, models.RoleTenantOperator)

	grant, err := resolver.RequestAccessGrant(context.Background(), actorFor(operator), app.ID, RequestMeta{IPAddress: "10.0.0.1"})
	if err != nil {
		t.Fatalf("RequestAccessGrant: %v", err)
	}
	if grant.URL != app.URL {
		t.Errorf("url = %s, want %s", grant.URL, app.URL)
	}

	if len(rec.events) != 1 {
		t.Fatalf("recorded %d events, want 1", len(rec.events))
	}
	event := rec.events[0]
	if event.Action != models.AccessActionAppAccess {
		t.Errorf("action = %s, want %s", event.Action, models.AccessActionAppAccess)
	}
	if event.ApplicationID == nil || *event.ApplicationID != app.ID {
		t.Errorf("application id = %v, want %s", event.ApplicationID, app.ID)
	}
	if event.IPAddress != "10.0.0.1" {
		t.Errorf("ip = %s", event.IPAddress)
	}
}

func TestRequestAccessGrantGates(t *testing.T) {
	now := time.Now()
	dir := newFakeDirectory()
	rec := &fakeRecorder{}
	resolver := testResolver(dir, rec, now)

	tenantID := uuid.New()
	active := dir.addApplication("alpha", true)
	inactive := dir.addApplication("bravo", false)

	dir.addLicense(tenantID, active.ID, true, nil)
	dir.addLicense(tenantID, inactive.ID, true, nil)

	operator := dir.addUser(models.RoleTenantOperator, &tenantID)
	admin := dir.addUser(models.RoleTenantAdmin, &tenantID)

	// Unknown application
	if _, err := resolver.RequestAccessGrant(context.Background(), actorFor(admin), uuid.New(), RequestMeta{}); !errors.Is(err, apperr.ErrApplicationNotFound) {
		t.Errorf("unknown app: err = %v, want %v", err, apperr.ErrApplicationNotFound)
	}

	// Deactivated application, even with a current license
	if _, err := resolver.RequestAccessGrant(context.Background(), actorFor(admin), inactive.ID, RequestMeta{}); !errors.Is(err, apperr.ErrNoAccess) {
		t.Errorf("inactive app: err = %v, want %v", err, apperr.ErrNoAccess)
	}

	// Operator without an assignment
	if _, err := resolver.RequestAccessGrant(context.Background(), actorFor(operator), active.ID, RequestMeta{}); !errors.Is(err, apperr.ErrNoAccess) {
		t.Errorf("missing assignment: err = %v, want %v", err, apperr.ErrNoAccess)
	}

	// Nothing audited on denials
	if len(rec.events) != 0 {
		t.Errorf("recorded %d events on denials", len(rec.events))
	}
}

func TestRequestAccessGrantLicenseGates(t *testing.T) {
	now := time.Now()
	dir := newFakeDirectory()
	rec := &fakeRecorder{}
	resolver := testResolver(dir, rec, now)

	tenantID := uuid.New()
	unlicensed := dir.addApplication("alpha", true)
	lapsed := dir.addApplication("bravo", true)
	revoked := dir.addApplication("charlie", true)

	expired := now.Add(-time.Minute)
	dir.addLicense(tenantID, lapsed.ID, true, &expired)
	dir.addLicense(tenantID, revoked.ID, false, nil)

	admin := dir.addUser(models.RoleTenantAdmin, &tenantID)
	operator := dir.addUser(models.RoleTenantOperator, &tenantID)
	// Assignment in place, license lapsed: the license stays the
	// outer gate
	dir.addAssignment(operator.ID, lapsed.ID, models.RoleTenantOperator)

	for _, app := range []*models.Application{unlicensed, lapsed, revoked} {
		if _, err := resolver.RequestAccessGrant(context.Background(), actorFor(admin), app.ID, RequestMeta{}); !errors.Is(err, apperr.ErrNoAccess) {
			t.Errorf("%s: err = %v, want %v", app.Name, err, apperr.ErrNoAccess)
		}
	}
	if _, err := resolver.RequestAccessGrant(context.Background(), actorFor(operator), lapsed.ID, RequestMeta{}); !errors.Is(err, apperr.ErrNoAccess) {
		t.Errorf("lapsed license with assignment: err = %v, want %v", err, apperr.ErrNoAccess)
	}
}

func TestRequestAccessGrantSuperAdminBypassesLicenses(t *testing.T) {
	now := time.Now()
	dir := newFakeDirectory()
	rec := &fakeRecorder{}
	resolver := testResolver(dir, rec, now)

	app := dir.addApplication("alpha", true)
	super := dir.addUser(models.RoleSuperAdmin, nil)

	grant, err := resolver.RequestAccessGrant(context.Background(), actorFor(super), app.ID, RequestMeta{})
	if err != nil {
		t.Fatalf("RequestAccessGrant: %v", err)
	}
	if grant.ApplicationName != "alpha" {
		t.Errorf("name = %s", grant.ApplicationName)
	}
}

func TestSyncAssignmentsReplacesSet(t *testing.T) {
	now := time.Now()
	dir := newFakeDirectory()
	rec := &fakeRecorder{}
	resolver := testResolver(dir, rec, now)

	tenantID := uuid.New()
	appA := dir.addApplication("alpha", true)
	appB := dir.addApplication("bravo", true)
	dir.addLicense(tenantID, appA.ID, true, nil)
	dir.addLicense(tenantID, appB.ID, true, nil)

	admin := dir.addUser(models.RoleTenantAdmin, &tenantID)
	operator := dir.addUser(models.RoleTenantOperator, &tenantID)
	dir.addAssignment(operator.ID, appA.ID, models.RoleTenantOperator)

	assignments, err := resolver.SyncAssignments(context.Background(), actorFor(admin), operator.ID, []AssignmentInput{
		{ApplicationID: appB.ID, Role: models.RoleTenantOperator},
	})
	if err != nil {
		t.Fatalf("SyncAssignments: %v", err)
	}
	if len(assignments) != 1 || assignments[0].ApplicationID != appB.ID {
		t.Errorf("assignments = %v, want just bravo", assignments)
	}

	// alpha was dropped by the replace
	if _, err := dir.GetUserAssignment(context.Background(), operator.ID, appA.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("old assignment survived the sync")
	}
}

func TestSyncAssignmentsRejectsAtomically(t *testing.T) {
	now := time.Now()
	dir := newFakeDirectory()
	rec := &fakeRecorder{}
	resolver := testResolver(dir, rec, now)

	tenantID := uuid.New()
	appA := dir.addApplication("alpha", true)
	appB := dir.addApplication("bravo", true)
	dir.addLicense(tenantID, appA.ID, true, nil)
	expired := now.Add(-time.Hour)
	dir.addLicense(tenantID, appB.ID, true, &expired)

	admin := dir.addUser(models.RoleTenantAdmin, &tenantID)
	operator := dir.addUser(models.RoleTenantOperator, &tenantID)
	dir.addAssignment(operator.ID, appA.ID, models.RoleTenantOperator)

	// bravo's license is expired: the whole sync fails and alpha
	// stays assigned
	_, err := resolver.SyncAssignments(context.Background(), actorFor(admin), operator.ID, []AssignmentInput{
		{ApplicationID: appA.ID, Role: models.RoleTenantOperator},
		{ApplicationID: appB.ID, Role: models.RoleTenantOperator},
	})
	if !errors.Is(err, apperr.ErrInvalidApplications) {
		t.Fatalf("err = %v, want %v", err, apperr.ErrInvalidApplications)
	}

	if _, err := dir.GetUserAssignment(context.Background(), operator.ID, appA.ID); err != nil {
		t.Errorf("prior assignment lost: %v", err)
	}
}

func TestSyncAssignmentsValidation(t *testing.T) {
	now := time.Now()
	dir := newFakeDirectory()
	rec := &fakeRecorder{}
	resolver := testResolver(dir, rec, now)

	tenantID := uuid.New()
	otherTenant := uuid.New()
	app := dir.addApplication("alpha", true)
	dir.addLicense(tenantID, app.ID, true, nil)

	admin := dir.addUser(models.RoleTenantAdmin, &tenantID)
	otherAdmin := dir.addUser(models.RoleTenantAdmin, &otherTenant)
	operator := dir.addUser(models.RoleTenantOperator, &tenantID)
	tenantAdmin := dir.addUser(models.RoleTenantAdmin, &tenantID)

	// Unknown target
	if _, err := resolver.SyncAssignments(context.Background(), actorFor(admin), uuid.New(), nil); !errors.Is(err, apperr.ErrUserNotFound) {
		t.Errorf("unknown target: err = %v, want %v", err, apperr.ErrUserNotFound)
	}

	// Target role takes no assignments
	if _, err := resolver.SyncAssignments(context.Background(), actorFor(admin), tenantAdmin.ID, nil); !errors.Is(err, apperr.ErrTargetNotAssignable) {
		t.Errorf("admin target: err = %v, want %v", err, apperr.ErrTargetNotAssignable)
	}

	// Cross-tenant actor
	if _, err := resolver.SyncAssignments(context.Background(), actorFor(otherAdmin), operator.ID, nil); !errors.Is(err, apperr.ErrTenantScopeViolation) {
		t.Errorf("cross tenant: err = %v, want %v", err, apperr.ErrTenantScopeViolation)
	}

	// Non-assignable role in an entry
	if _, err := resolver.SyncAssignments(context.Background(), actorFor(admin), operator.ID, []AssignmentInput{
		{ApplicationID: app.ID, Role: models.RoleTenantAdmin},
	}); !errors.Is(err, apperr.ErrInvalidAppRole) {
		t.Errorf("bad role: err = %v, want %v", err, apperr.ErrInvalidAppRole)
	}

	// Duplicate application entries
	if _, err := resolver.SyncAssignments(context.Background(), actorFor(admin), operator.ID, []AssignmentInput{
		{ApplicationID: app.ID, Role: models.RoleTenantOperator},
		{ApplicationID: app.ID, Role: models.RoleTenantSupervisor},
	}); !errors.Is(err, apperr.ErrInvalidApplications) {
		t.Errorf("duplicate app: err = %v, want %v", err, apperr.ErrInvalidApplications)
	}
}

func TestSyncAssignmentsEmptySetClears(t *testing.T) {
	now := time.Now()
	dir := newFakeDirectory()
	rec := &fakeRecorder{}
	resolver := testResolver(dir, rec, now)

	tenantID := uuid.New()
	app := dir.addApplication("alpha", true)
	dir.addLicense(tenantID, app.ID, true, nil)

	admin := dir.addUser(models.RoleTenantAdmin, &tenantID)
	operator := dir.addUser(models.RoleTenantOperator, &tenantID)
	dir.addAssignment(operator.ID, app.ID, models.RoleTenantOperator)

	assignments, err := resolver.SyncAssignments(context.Background(), actorFor(admin), operator.ID, nil)
	if err != nil {
		t.Fatalf("SyncAssignments: %v", err)
	}
	if len(assignments) != 0 {
		t.Errorf("assignments = %v, want empty", assignments)
	}
}
