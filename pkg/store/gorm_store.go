package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"lendingdesk/pkg/domain"
)

// GormStore implements Store using GORM + Postgres. Each Save* replaces the
// corresponding table's snapshot inside a transaction so a load after a
// save reproduces counts and queue order exactly.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&TitleModel{}, &WaitingEntryModel{}, &UserModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// LoadCatalog returns catalog entries in first-seen order, which seeds
// reporting tie-breaks after a restart.
func (s *GormStore) LoadCatalog() ([]domain.Title, error) {
	var models []TitleModel
	if err := s.db.Order("position").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	titles := make([]domain.Title, 0, len(models))
	for _, m := range models {
		titles = append(titles, domain.Title{
			Name:        m.Name,
			Author:      m.Author,
			Genre:       m.Genre,
			Year:        m.Year,
			TotalCopies: m.TotalCopies,
		})
	}
	return titles, nil
}

// LoadAvailability returns the name -> available mapping.
func (s *GormStore) LoadAvailability() (map[string]int, error) {
	var models []TitleModel
	if err := s.db.Select("name", "available").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}
	out := make(map[string]int, len(models))
	for _, m := range models {
		out[m.Name] = m.Available
	}
	return out, nil
}

// LoadWaitingList returns waiting entries ordered per title by queue
// position.
func (s *GormStore) LoadWaitingList() ([]domain.WaitingEntry, error) {
	var models []WaitingEntryModel
	if err := s.db.Order("title, position").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("load waiting list: %w", err)
	}
	entries := make([]domain.WaitingEntry, 0, len(models))
	for _, m := range models {
		entry := domain.WaitingEntry{
			ID:         m.ID,
			Title:      m.Title,
			Requester:  domain.Requester{Name: m.Requester},
			EnqueuedAt: m.EnqueuedAt,
		}
		if len(m.Contact) > 0 {
			var contact contactJSON
			if err := json.Unmarshal(m.Contact, &contact); err != nil {
				return nil, fmt.Errorf("decode contact for entry %s: %w", m.ID, err)
			}
			entry.Requester.Email = contact.Email
			entry.Requester.Phone = contact.Phone
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// LoadUsers returns all registered accounts.
func (s *GormStore) LoadUsers() ([]domain.User, error) {
	var models []UserModel
	if err := s.db.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	users := make([]domain.User, 0, len(models))
	for _, m := range models {
		users = append(users, domain.User{
			Username:     m.Username,
			PasswordHash: m.PasswordHash,
			CreatedAt:    m.CreatedAt,
		})
	}
	return users, nil
}

// SaveCatalog upserts the given titles and prunes rows no longer present.
// The available column is preserved on update and seeded with totalCopies
// on first insert; SaveAvailability owns it afterwards.
func (s *GormStore) SaveCatalog(titles []domain.Title) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		names := make([]string, 0, len(titles))
		for i, t := range titles {
			names = append(names, t.Name)
			model := TitleModel{
				Name:        t.Name,
				Author:      t.Author,
				Genre:       t.Genre,
				Year:        t.Year,
				TotalCopies: t.TotalCopies,
				Available:   t.TotalCopies,
				Position:    i,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoUpdates: clause.AssignmentColumns([]string{"author", "genre", "year", "total_copies", "position"}),
			}).Create(&model).Error; err != nil {
				return fmt.Errorf("save title %q: %w", t.Name, err)
			}
		}
		prune := tx.Model(&TitleModel{})
		if len(names) > 0 {
			prune = prune.Where("name NOT IN ?", names)
		} else {
			prune = prune.Where("1 = 1")
		}
		if err := prune.Delete(&TitleModel{}).Error; err != nil {
			return fmt.Errorf("prune catalog: %w", err)
		}
		return nil
	})
}

// SaveAvailability writes the available count per title.
func (s *GormStore) SaveAvailability(available map[string]int) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for name, n := range available {
			if err := tx.Model(&TitleModel{}).Where("name = ?", name).
				Update("available", n).Error; err != nil {
				return fmt.Errorf("save availability for %q: %w", name, err)
			}
		}
		return nil
	})
}

// SaveWaitingList replaces the waiting-list table with the given entries,
// recording each entry's position within its title queue.
func (s *GormStore) SaveWaitingList(entries []domain.WaitingEntry) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&WaitingEntryModel{}).Error; err != nil {
			return fmt.Errorf("clear waiting list: %w", err)
		}
		positions := make(map[string]int)
		for _, e := range entries {
			contact, err := json.Marshal(contactJSON{Email: e.Requester.Email, Phone: e.Requester.Phone})
			if err != nil {
				return fmt.Errorf("encode contact for entry %s: %w", e.ID, err)
			}
			model := WaitingEntryModel{
				ID:         e.ID,
				Title:      e.Title,
				Requester:  e.Requester.Name,
				Contact:    datatypes.JSON(contact),
				Position:   positions[e.Title],
				EnqueuedAt: e.EnqueuedAt,
			}
			positions[e.Title]++
			if err := tx.Create(&model).Error; err != nil {
				return fmt.Errorf("save waiting entry %s: %w", e.ID, err)
			}
		}
		return nil
	})
}

// SaveUsers replaces the accounts table.
func (s *GormStore) SaveUsers(users []domain.User) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&UserModel{}).Error; err != nil {
			return fmt.Errorf("clear users: %w", err)
		}
		for _, u := range users {
			model := UserModel{
				Username:     u.Username,
				PasswordHash: u.PasswordHash,
				CreatedAt:    u.CreatedAt,
			}
			if err := tx.Create(&model).Error; err != nil {
				return fmt.Errorf("save user %q: %w", u.Username, err)
			}
		}
		return nil
	})
}

type contactJSON struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}
