// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/danielhkuo/party-survey/auth"
	"github.com/danielhkuo/party-survey/models"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Parties []seedParty `yaml:"parties"`
}

type seedParty struct {
	Name       string `yaml:"name"`
	SymbolName string `yaml:"symbol_name"`
	ImageURL   string `yaml:"image_url"`
	Color      string `yaml:"color"`
	ShortCode  string `yaml:"short_code"`
}

// LoadSeed reads a YAML party list:
//
//	parties:
//	  - name: Green Party
//	    symbol_name: Tree
//	    color: "#16a34a"
//	    short_code: GP
func LoadSeed(path string) ([]models.PartyRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	reqs := make([]models.PartyRequest, 0, len(f.Parties))
	for i, p := range f.Parties {
		if p.Name == "" || p.ShortCode == "" {
			return nil, fmt.Errorf("seed party %d: name and short_code are required", i)
		}
		req := models.PartyRequest{
			Name:       p.Name,
			SymbolName: p.SymbolName,
			Color:      p.Color,
			ShortCode:  p.ShortCode,
		}
		if p.ImageURL != "" {
			url := p.ImageURL
			req.ImageURL = &url
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// SeedParties inserts the given parties only when the party table is empty.
// Returns the number of rows inserted.
func SeedParties(db *sql.DB, parties []models.PartyRequest) (int, error) {
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM party`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count parties: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	// Stagger timestamps so insertion order survives equal clock readings
	base := time.Now()
	for i, p := range parties {
		color := p.Color
		if color == "" {
			color = "#64748b"
		}
		_, err := tx.Exec(`
			INSERT INTO party (id, name, symbol_name, image_url, color, vote_count, short_code, created_at)
			VALUES ($1, $2, $3, $4, $5, 0, $6, $7)
		`, auth.NewID(), p.Name, p.SymbolName, p.ImageURL, color, p.ShortCode, base.Add(time.Duration(i)*time.Millisecond))
		if err != nil {
			return 0, fmt.Errorf("failed to seed party %q: %w", p.ShortCode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit seed: %w", err)
	}
	return len(parties), nil
}
