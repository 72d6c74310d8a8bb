package db

import (
	"campus-project-hub/internal/domain"
	"log"
)

// Migrate runs database migrations
func Migrate() {
	err := AppDb.AutoMigrate(
		&domain.Project{},
		&domain.CollaboratorRole{},
		&domain.Proposal{},
		&domain.AttachedFile{},
		&domain.ProjectFile{},
	)

	if err != nil {
		log.Fatal(err)
	}

	log.Println("Database schema migrated successfully")
}

// SeedData seeds the database with initial data (for development only)
func SeedData() {
	var count int64
	if err := AppDb.Model(&domain.Project{}).Count(&count).Error; err != nil {
		log.Printf("Error checking seed data: %v", err)
		return
	}
	if count > 0 {
		log.Println("Seed data already present")
		return
	}

	project := &domain.Project{
		OwnerID:     1,
		Title:       "Demo Project",
		Description: "A seeded project for local development",
		Category:    "Web",
		TechStack:   domain.StringList{"Go", "PostgreSQL"},
		Course:      "CS-101",
		Semester:    "2026-1",
		Version:     1,
	}
	if err := AppDb.Create(project).Error; err != nil {
		log.Printf("Error creating demo project: %v", err)
		return
	}

	roles := []domain.CollaboratorRole{
		{UserID: 1, ProjectID: project.ID, Role: domain.RoleOwner},
		{UserID: 2, ProjectID: project.ID, Role: domain.RoleCollaborator},
	}
	if err := AppDb.Create(&roles).Error; err != nil {
		log.Printf("Error creating demo roles: %v", err)
		return
	}

	log.Printf("Created demo project %d (owner=1, collaborator=2)", project.ID)
}
