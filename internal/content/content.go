// Package content serves the static site copy bundled into the binary.
package content

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"empirepilot/internal/domain"
)

//go:embed site.yaml
var siteYAML []byte

type Company struct {
	Name           string   `yaml:"name" json:"name"`
	CompanyNumber  string   `yaml:"company_number" json:"companyNumber"`
	Phone          string   `yaml:"phone" json:"phone"`
	Email          string   `yaml:"email" json:"email"`
	Address        []string `yaml:"address" json:"address"`
	Hours          []string `yaml:"hours" json:"hours"`
	Accreditations []string `yaml:"accreditations" json:"accreditations"`
}

type Service struct {
	ID          string   `yaml:"id" json:"id"`
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	Image       string   `yaml:"image" json:"image"`
	Features    []string `yaml:"features" json:"features"`
}

type Project struct {
	ID          int      `yaml:"id" json:"id"`
	Title       string   `yaml:"title" json:"title"`
	Category    string   `yaml:"category" json:"category"`
	Location    string   `yaml:"location" json:"location"`
	Year        string   `yaml:"year" json:"year"`
	Description string   `yaml:"description" json:"description"`
	Image       string   `yaml:"image" json:"image"`
	Features    []string `yaml:"features" json:"features"`
}

type demoPost struct {
	ID       string   `yaml:"id"`
	AgeDays  int      `yaml:"age_days"`
	Template string   `yaml:"template"`
	Original string   `yaml:"original"`
	Enhanced string   `yaml:"enhanced"`
	Hashtags []string `yaml:"hashtags"`
	Image    string   `yaml:"image"`
}

type Site struct {
	company   Company
	services  []Service
	projects  []Project
	demoPosts []demoPost
}

// Load parses the embedded site.yaml.
func Load() (*Site, error) {
	return parse(siteYAML)
}

func parse(raw []byte) (*Site, error) {
	var doc struct {
		Company   Company    `yaml:"company"`
		Services  []Service  `yaml:"services"`
		Projects  []Project  `yaml:"projects"`
		DemoPosts []demoPost `yaml:"demo_posts"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse site content: %w", err)
	}
	return &Site{
		company:   doc.Company,
		services:  doc.Services,
		projects:  doc.Projects,
		demoPosts: doc.DemoPosts,
	}, nil
}

func (s *Site) Company() Company {
	return s.company
}

func (s *Site) Services() []Service {
	return append([]Service(nil), s.services...)
}

// Projects returns every project, or only those in category when it is not
// empty or "All".
func (s *Site) Projects(category string) []Project {
	out := make([]Project, 0, len(s.projects))
	for _, p := range s.projects {
		if category == "" || category == "All" || p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// ProjectCategories lists categories in first-seen order.
func (s *Site) ProjectCategories() []string {
	seen := make(map[string]bool)
	out := []string{"All"}
	for _, p := range s.projects {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	return out
}

// DemoPosts returns the bundled published posts dated relative to now.
func (s *Site) DemoPosts(now time.Time) []domain.NewsPost {
	out := make([]domain.NewsPost, 0, len(s.demoPosts))
	for _, d := range s.demoPosts {
		out = append(out, domain.NewsPost{
			ID:           d.ID,
			OriginalText: d.Original,
			EnhancedText: d.Enhanced,
			Hashtags:     append([]string(nil), d.Hashtags...),
			Template:     d.Template,
			ImageURL:     d.Image,
			Status:       domain.PostPublished,
			CreatedAt:    now.Add(-time.Duration(d.AgeDays) * 24 * time.Hour),
		})
	}
	return out
}
