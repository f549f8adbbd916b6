package repository

import (
	"path/filepath"
	"testing"

	"pocketledger/internal/database"
	"pocketledger/internal/models"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db, err := database.New(dbPath)
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestUserRepository_Create_ValidUser_ReturnsID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	user := &models.User{
		Email:        "test@example.com",
		PasswordHash: "hashedpassword123",
		Name:         "Test User",
	}

	id, err := repo.Create(user)
	if err != nil {
		t.Fatalf("Create() error = %v, want nil", err)
	}
	if id <= 0 {
		t.Errorf("Create() id = %d, want > 0", id)
	}
}

func TestUserRepository_Create_DuplicateEmail_ReturnsError(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	user := &models.User{
		Email:        "test@example.com",
		PasswordHash: "hashedpassword123",
		Name:         "Test User",
	}

	_, err := repo.Create(user)
	if err != nil {
		t.Fatalf("first Create() error = %v", err)
	}

	// Try to create another user with same email
	user2 := &models.User{
		Email:        "test@example.com",
		PasswordHash: "differenthash",
		Name:         "Another User",
	}

	_, err = repo.Create(user2)
	if err == nil {
		t.Error("Create() with duplicate email should return error")
	}
}

func TestUserRepository_GetByID_ExistingUser_ReturnsUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	user := &models.User{
		Email:        "test@example.com",
		PasswordHash: "hashedpassword123",
		Name:         "Test User",
	}
	id, _ := repo.Create(user)

	found, err := repo.GetByID(id)
	if err != nil {
		t.Fatalf("GetByID() error = %v, want nil", err)
	}
	if found == nil {
		t.Fatal("GetByID() returned nil, want user")
	}
	if found.Email != user.Email {
		t.Errorf("GetByID() email = %q, want %q", found.Email, user.Email)
	}
	if found.Name != user.Name {
		t.Errorf("GetByID() name = %q, want %q", found.Name, user.Name)
	}
}

func TestUserRepository_GetByID_NonExistent_ReturnsNil(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	found, err := repo.GetByID(999)
	if err != nil {
		t.Fatalf("GetByID() error = %v, want nil", err)
	}
	if found != nil {
		t.Errorf("GetByID() for non-existent id should return nil, got %v", found)
	}
}

func TestUserRepository_GetByEmail_NonExistent_ReturnsNil(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	found, err := repo.GetByEmail("nonexistent@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v, want nil", err)
	}
	if found != nil {
		t.Errorf("GetByEmail() for non-existent email should return nil, got %v", found)
	}
}

func TestUserRepository_UpdateCashBalance_Succeeds(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	user := &models.User{
		Email:        "test@example.com",
		PasswordHash: "hashedpassword123",
		Name:         "Test User",
	}
	id, _ := repo.Create(user)

	err := repo.UpdateCashBalance(id, 2500.75)
	if err != nil {
		t.Fatalf("UpdateCashBalance() error = %v, want nil", err)
	}

	found, _ := repo.GetByID(id)
	if found.CashBalance != 2500.75 {
		t.Errorf("UpdateCashBalance() balance = %v, want 2500.75", found.CashBalance)
	}
}

func TestUserRepository_UpdatePassword_ValidHash_Succeeds(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	user := &models.User{
		Email:        "test@example.com",
		PasswordHash: "oldhash",
		Name:         "Test User",
	}
	id, _ := repo.Create(user)

	err := repo.UpdatePassword(id, "newhash")
	if err != nil {
		t.Fatalf("UpdatePassword() error = %v, want nil", err)
	}

	found, _ := repo.GetByID(id)
	if found.PasswordHash != "newhash" {
		t.Errorf("UpdatePassword() hash = %q, want %q", found.PasswordHash, "newhash")
	}
}

func TestUserRepository_Delete_ExistingUser_Succeeds(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	user := &models.User{
		Email:        "test@example.com",
		PasswordHash: "hashedpassword123",
		Name:         "Test User",
	}
	id, _ := repo.Create(user)

	err := repo.Delete(id)
	if err != nil {
		t.Fatalf("Delete() error = %v, want nil", err)
	}

	found, _ := repo.GetByID(id)
	if found != nil {
		t.Error("GetByID() after Delete() should return nil")
	}
}

func TestUserRepository_EmailExists(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	repo.Create(&models.User{
		Email:        "taken@example.com",
		PasswordHash: "hash",
		Name:         "Taken",
	})

	exists, err := repo.EmailExists("taken@example.com")
	if err != nil {
		t.Fatalf("EmailExists() error = %v", err)
	}
	if !exists {
		t.Error("EmailExists() = false for registered email, want true")
	}

	exists, _ = repo.EmailExists("free@example.com")
	if exists {
		t.Error("EmailExists() = true for unregistered email, want false")
	}
}
