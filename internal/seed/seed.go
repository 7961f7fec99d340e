package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dejobratic/libris/internal/accounts"
	"github.com/dejobratic/libris/internal/catalog"
	"gopkg.in/yaml.v3"
)

// File is the seed document: the first admin and the starting catalog.
type File struct {
	Admin *Admin            `yaml:"admin" json:"admin"`
	Books []catalog.NewBook `yaml:"books" json:"books"`
}

type Admin struct {
	Email       string `yaml:"email" json:"email"`
	Password    string `yaml:"password" json:"password"`
	FullName    string `yaml:"fullName" json:"fullName"`
	PhoneNumber string `yaml:"phoneNumber" json:"phoneNumber"`
	Address     string `yaml:"address" json:"address"`
}

// LoadFile reads a seed file, YAML or JSON by extension.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}

	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parsing JSON seed: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parsing YAML seed: %w", err)
		}
	}
	return &f, nil
}

// BookCatalog is the slice of the catalog the seeder writes to.
type BookCatalog interface {
	List(ctx context.Context) ([]catalog.Book, error)
	Add(ctx context.Context, input catalog.NewBook) (*catalog.Book, error)
}

// AdminDirectory creates the first admin.
type AdminDirectory interface {
	EnsureAdmin(ctx context.Context, in accounts.CreateInput) (bool, error)
}

// Result reports what Apply changed.
type Result struct {
	AdminCreated bool
	BooksAdded   int
}

// Apply creates the admin when no account exists and adds the books when the
// catalog is empty. Running it again against seeded storage changes nothing.
func Apply(ctx context.Context, f *File, books BookCatalog, dir AdminDirectory) (Result, error) {
	var res Result

	if f.Admin != nil {
		created, err := dir.EnsureAdmin(ctx, accounts.CreateInput{
			Email:       f.Admin.Email,
			Password:    f.Admin.Password,
			FullName:    f.Admin.FullName,
			Role:        accounts.RoleAdmin,
			PhoneNumber: f.Admin.PhoneNumber,
			Address:     f.Admin.Address,
		})
		if err != nil {
			return res, fmt.Errorf("seed admin: %w", err)
		}
		res.AdminCreated = created
	}

	existing, err := books.List(ctx)
	if err != nil {
		return res, fmt.Errorf("list books: %w", err)
	}
	if len(existing) > 0 {
		return res, nil
	}

	for i, b := range f.Books {
		if _, err := books.Add(ctx, b); err != nil {
			return res, fmt.Errorf("seed book %d (%q): %w", i, b.Title, err)
		}
		res.BooksAdded++
	}
	return res, nil
}
