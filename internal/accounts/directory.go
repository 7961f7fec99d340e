package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dejobratic/libris/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrCreatorNotFound    = errors.New("creator not found")
	ErrForbiddenRole      = errors.New("creator may not create accounts with this role")
	ErrInvalidAccount     = errors.New("invalid account")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrBlocked            = errors.New("account is blocked")
)

// Directory stores profiles in the users collection and bcrypt hashes in the
// passwords collection.
type Directory struct {
	store  storage.Store
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

func NewDirectory(store storage.Store, logger *slog.Logger) *Directory {
	return &Directory{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (d *Directory) users(ctx context.Context) ([]Profile, error) {
	return storage.Load(ctx, d.store, storage.Users, []Profile{})
}

func (d *Directory) passwords(ctx context.Context) (map[string]string, error) {
	return storage.Load(ctx, d.store, storage.Passwords, map[string]string{})
}

// Get returns a profile by id.
func (d *Directory) Get(ctx context.Context, id int64) (*Profile, error) {
	users, err := d.users(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

// List returns profiles, optionally only those with role.
func (d *Directory) List(ctx context.Context, role *Role) ([]Profile, error) {
	users, err := d.users(ctx)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return users, nil
	}
	var out []Profile
	for _, u := range users {
		if u.Role == *role {
			out = append(out, u)
		}
	}
	return out, nil
}

// ValidateActor checks that id refers to an active account.
func (d *Directory) ValidateActor(ctx context.Context, id int64) error {
	profile, err := d.Get(ctx, id)
	if err != nil {
		return err
	}
	if profile.Status == StatusBlocked {
		return ErrBlocked
	}
	return nil
}

// Create registers a new account on behalf of creatorID.
func (d *Directory) Create(ctx context.Context, in CreateInput, creatorID int64) (*Profile, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	users, err := d.users(ctx)
	if err != nil {
		return nil, err
	}

	email := normalizeEmail(in.Email)
	var creator *Profile
	for i := range users {
		if users[i].Email == email {
			return nil, ErrDuplicateEmail
		}
		if users[i].ID == creatorID {
			creator = &users[i]
		}
	}
	if creator == nil {
		return nil, ErrCreatorNotFound
	}
	if !CanCreate(creator.Role, in.Role) {
		return nil, fmt.Errorf("%w: %s cannot create %s", ErrForbiddenRole, creator.Role, in.Role)
	}

	createdBy := creatorID
	profile := newProfile(in, nextID(users), d.now())
	profile.CreatedBy = &createdBy

	if err := d.persist(ctx, append(users, profile), email, in.Password); err != nil {
		return nil, err
	}

	d.logger.InfoContext(ctx, "account created",
		"user_id", profile.ID,
		"role", profile.Role,
		"created_by", creatorID,
	)
	return &profile, nil
}

// EnsureAdmin creates the first admin account when the directory is empty.
// It reports whether an account was created.
func (d *Directory) EnsureAdmin(ctx context.Context, in CreateInput) (bool, error) {
	in.Role = RoleAdmin
	if err := in.Validate(); err != nil {
		return false, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	users, err := d.users(ctx)
	if err != nil {
		return false, err
	}
	if len(users) > 0 {
		return false, nil
	}

	profile := newProfile(in, 1, d.now())
	if err := d.persist(ctx, []Profile{profile}, profile.Email, in.Password); err != nil {
		return false, err
	}
	d.logger.InfoContext(ctx, "initial admin created", "email", profile.Email)
	return true, nil
}

func (d *Directory) persist(ctx context.Context, users []Profile, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	passwords, err := d.passwords(ctx)
	if err != nil {
		return err
	}
	passwords[email] = string(hash)

	if err := storage.Save(ctx, d.store, storage.Passwords, passwords); err != nil {
		return err
	}
	return storage.Save(ctx, d.store, storage.Users, users)
}

// Block marks an account blocked.
func (d *Directory) Block(ctx context.Context, id int64) error {
	return d.setStatus(ctx, id, StatusBlocked)
}

// Unblock marks an account active.
func (d *Directory) Unblock(ctx context.Context, id int64) error {
	return d.setStatus(ctx, id, StatusActive)
}

func (d *Directory) setStatus(ctx context.Context, id int64, status Status) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	users, err := d.users(ctx)
	if err != nil {
		return err
	}
	found := false
	for i := range users {
		if users[i].ID == id {
			users[i].Status = status
			found = true
		}
	}
	if !found {
		return ErrUserNotFound
	}
	if err := storage.Save(ctx, d.store, storage.Users, users); err != nil {
		return err
	}
	d.logger.InfoContext(ctx, "account status changed", "user_id", id, "status", status)
	return nil
}

// Authenticate checks credentials and returns the session view of the account.
func (d *Directory) Authenticate(ctx context.Context, email, password string) (*User, error) {
	users, err := d.users(ctx)
	if err != nil {
		return nil, err
	}

	email = normalizeEmail(email)
	var profile *Profile
	for i := range users {
		if users[i].Email == email {
			profile = &users[i]
			break
		}
	}
	if profile == nil {
		return nil, ErrInvalidCredentials
	}
	if profile.Status == StatusBlocked {
		return nil, ErrBlocked
	}

	passwords, err := d.passwords(ctx)
	if err != nil {
		return nil, err
	}
	hash, ok := passwords[email]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	user := profile.User()
	return &user, nil
}

func newProfile(in CreateInput, id int64, now time.Time) Profile {
	return Profile{
		ID:             id,
		Email:          normalizeEmail(in.Email),
		FullName:       strings.TrimSpace(in.FullName),
		Role:           in.Role,
		PhoneNumber:    in.PhoneNumber,
		Address:        in.Address,
		PassportNumber: in.PassportNumber,
		DateOfBirth:    in.DateOfBirth,
		CreatedAt:      now,
		Status:         StatusActive,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func nextID(users []Profile) int64 {
	var max int64
	for _, u := range users {
		if u.ID > max {
			max = u.ID
		}
	}
	return max + 1
}
