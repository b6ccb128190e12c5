package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/crypto/bcrypt"
)

// Roles a crescendo account can hold. Admins may manage users.toml by hand;
// the server itself only reports the role on the auth status surface.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is one account in users.toml. Plaintext passwords are hashed in
// place on the next server start, so operators can reset a password by
// editing the file.
type User struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
	Role     string `toml:"role"`
	Created  string `toml:"created"` // RFC3339
}

// UserConfig represents the structure of users.toml
type UserConfig struct {
	Users []User `toml:"users"`
}

// UserStore manages accounts backed by a TOML file. Registration can race
// with concurrent requests, so mutation holds the store lock.
type UserStore struct {
	mutex    sync.RWMutex
	users    map[string]*User
	filePath string
}

// NewUserStore creates a new user store and loads users from the specified file
func NewUserStore(filePath string) (*UserStore, error) {
	store := &UserStore{
		users:    make(map[string]*User),
		filePath: filePath,
	}

	if err := store.loadUsers(); err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	return store, nil
}

// loadUsers loads users from the TOML file and hashes passwords if needed
func (us *UserStore) loadUsers() error {
	if _, err := os.Stat(us.filePath); os.IsNotExist(err) {
		return us.createDefaultUser()
	}

	var config UserConfig
	if _, err := toml.DecodeFile(us.filePath, &config); err != nil {
		return fmt.Errorf("failed to parse users file: %w", err)
	}

	needsSave := false
	for i := range config.Users {
		user := &config.Users[i]

		if !isHashedPassword(user.Password) {
			hashedPassword, err := hashPassword(user.Password)
			if err != nil {
				return fmt.Errorf("failed to hash password for user %s: %w", user.Username, err)
			}
			user.Password = hashedPassword
			needsSave = true
		}
		if user.Role == "" {
			user.Role = RoleUser
			needsSave = true
		}

		us.users[user.Username] = user
	}

	// Persist the hashed passwords so plaintext never outlives one start
	if needsSave {
		return us.save()
	}

	return nil
}

// createDefaultUser creates a default admin user if no users file exists
func (us *UserStore) createDefaultUser() error {
	password, err := generateRandomPassword(12)
	if err != nil {
		return fmt.Errorf("failed to generate default password: %w", err)
	}

	hashedPassword, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash default password: %w", err)
	}

	us.users["admin"] = &User{
		Username: "admin",
		Password: hashedPassword,
		Role:     RoleAdmin,
		Created:  time.Now().UTC().Format(time.RFC3339),
	}

	if err := us.save(); err != nil {
		return err
	}

	// Print the generated password to stdout so the operator can see it
	fmt.Printf("\n"+
		"=====================================\n"+
		"DEFAULT ADMIN USER CREATED\n"+
		"=====================================\n"+
		"Username: admin\n"+
		"Password: %s\n"+
		"=====================================\n"+
		"Please change this password by editing users.toml\n\n", password)

	return nil
}

// save writes the current accounts back to users.toml, sorted by username so
// repeated saves do not reshuffle the file.
func (us *UserStore) save() error {
	usersList := make([]User, 0, len(us.users))
	for _, user := range us.users {
		usersList = append(usersList, *user)
	}
	sort.Slice(usersList, func(i, j int) bool {
		return usersList[i].Username < usersList[j].Username
	})

	file, err := os.Create(us.filePath)
	if err != nil {
		return fmt.Errorf("failed to create users file: %w", err)
	}
	defer file.Close()

	header := `# Crescendo Users Configuration
# This file contains user accounts for authentication.
# Passwords will be automatically hashed when the server starts.
# To add a new user, add a new [[users]] section with username and password.
# To change a password, replace the hashed password with a new plaintext password.

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write users file header: %w", err)
	}

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(UserConfig{Users: usersList}); err != nil {
		return fmt.Errorf("failed to encode users to TOML: %w", err)
	}

	return nil
}

// Authenticate checks if the provided username and password are valid
func (us *UserStore) Authenticate(username, password string) bool {
	us.mutex.RLock()
	user, exists := us.users[username]
	us.mutex.RUnlock()
	if !exists {
		return false
	}

	err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password))
	return err == nil
}

// GetUser returns a user by username with the password hash stripped.
func (us *UserStore) GetUser(username string) *User {
	us.mutex.RLock()
	defer us.mutex.RUnlock()

	user, exists := us.users[username]
	if !exists {
		return nil
	}

	return &User{
		Username: user.Username,
		Role:     user.Role,
		Created:  user.Created,
	}
}

// RegisterUser adds a new user to the store
func (us *UserStore) RegisterUser(username, password string) error {
	hashedPassword, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	us.mutex.Lock()
	defer us.mutex.Unlock()

	if _, exists := us.users[username]; exists {
		return fmt.Errorf("user already exists")
	}

	us.users[username] = &User{
		Username: username,
		Password: hashedPassword,
		Role:     RoleUser,
		Created:  time.Now().UTC().Format(time.RFC3339),
	}

	return us.save()
}

// hashPassword hashes a plaintext password using bcrypt
func hashPassword(password string) (string, error) {
	// Cost 12 keeps login under ~100ms on commodity hardware
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// isHashedPassword checks if a password string is already hashed
func isHashedPassword(password string) bool {
	// bcrypt hashes start with $2a$, $2b$, $2x$ or $2y$
	return len(password) >= 4 &&
		password[0] == '$' &&
		password[1] == '2' &&
		(password[2] == 'a' || password[2] == 'b' || password[2] == 'x' || password[2] == 'y') &&
		password[3] == '$'
}

// generateRandomPassword generates a cryptographically secure random password
func generateRandomPassword(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}

	return hex.EncodeToString(bytes)[:length], nil
}
