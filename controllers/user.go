package controllers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"event-manager/models"
	"event-manager/utils"
)

type Controller struct {
	Log *logrus.Logger
}

func (c Controller) Signup(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var user models.User
		if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid request body."})
			return
		}

		user.Name = strings.TrimSpace(user.Name)
		user.Email = strings.TrimSpace(user.Email)
		if user.Name == "" || user.Email == "" || user.Password == "" || user.Role == "" {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "All fields are required!"})
			return
		}
		if !strings.Contains(user.Email, "@") {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid email format."})
			return
		}
		if !models.ValidRole(user.Role) {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Role must be Organizer or Attendee."})
			return
		}

		var existingID int
		err := db.QueryRow("SELECT UserID FROM Users WHERE Email = ?", user.Email).Scan(&existingID)
		if err == nil {
			utils.RespondWithError(w, http.StatusConflict, models.Error{Message: "Email already exists!"})
			return
		} else if err != sql.ErrNoRows {
			c.Log.WithError(err).Error("error checking existing user")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Server error."})
			return
		}

		hash, err := utils.HashPassword(user.Password)
		if err != nil {
			c.Log.WithError(err).Error("error hashing password")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Server error."})
			return
		}

		_, err = db.Exec(
			"INSERT INTO Users (Name, Email, Password, Role) VALUES (?, ?, ?, ?)",
			user.Name, user.Email, hash, user.Role,
		)
		if err != nil {
			// The unique key on Email can still fire under a concurrent signup.
			var mysqlErr *mysql.MySQLError
			if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
				utils.RespondWithError(w, http.StatusConflict, models.Error{Message: "Email already exists!"})
				return
			}
			c.Log.WithError(err).Error("error inserting user")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Registration failed."})
			return
		}

		utils.ResponseJSON(w, map[string]string{"message": "Registration successful! Please login."})
	}
}

func (c Controller) Login(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds models.User
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid request body."})
			return
		}
		if creds.Email == "" || creds.Password == "" {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Email and password are required."})
			return
		}

		var user models.User
		var hashedPassword string
		var avatar sql.NullString
		err := db.QueryRow(
			"SELECT UserID, Name, Email, Password, Role, AvatarURL FROM Users WHERE Email = ?",
			creds.Email,
		).Scan(&user.ID, &user.Name, &user.Email, &hashedPassword, &user.Role, &avatar)
		if err == sql.ErrNoRows {
			utils.RespondWithError(w, http.StatusUnauthorized, models.Error{Message: "Invalid credentials!"})
			return
		} else if err != nil {
			c.Log.WithError(err).Error("error querying user on login")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Server error."})
			return
		}

		if !utils.ComparePasswords(hashedPassword, []byte(creds.Password)) {
			utils.RespondWithError(w, http.StatusUnauthorized, models.Error{Message: "Invalid credentials!"})
			return
		}

		user.AvatarURL = avatar.String
		token, err := utils.GenerateToken(user, 24*time.Hour)
		if err != nil {
			c.Log.WithError(err).Error("error generating token")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Server error."})
			return
		}

		user.Password = ""
		utils.ResponseJSON(w, map[string]interface{}{
			"token": token,
			"user":  user,
		})
	}
}

func (c Controller) GetMe(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _, err := utils.VerifyToken(r)
		if err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, models.Error{Message: err.Error()})
			return
		}

		var user models.User
		var avatar sql.NullString
		err = db.QueryRow(
			"SELECT UserID, Name, Email, Role, AvatarURL FROM Users WHERE UserID = ?",
			userID,
		).Scan(&user.ID, &user.Name, &user.Email, &user.Role, &avatar)
		if err == sql.ErrNoRows {
			utils.RespondWithError(w, http.StatusNotFound, models.Error{Message: "User not found."})
			return
		} else if err != nil {
			c.Log.WithError(err).Error("error querying current user")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Server error."})
			return
		}
		user.AvatarURL = avatar.String
		utils.ResponseJSON(w, user)
	}
}

func (c Controller) UploadAvatar(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _, err := utils.VerifyToken(r)
		if err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, models.Error{Message: err.Error()})
			return
		}

		if err := r.ParseMultipartForm(10 << 20); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid multipart form."})
			return
		}
		file, header, err := r.FormFile("avatar")
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Avatar file is required."})
			return
		}
		defer file.Close()

		if !utils.AllowedPhotoFile(header.Filename) {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid file type."})
			return
		}

		ext := strings.ToLower(filepath.Ext(header.Filename))
		fileName := fmt.Sprintf("avatars/%d-%s%s", userID, uuid.New().String(), ext)
		url, err := utils.UploadFileToS3(file, fileName)
		if err != nil {
			c.Log.WithError(err).Error("error uploading avatar")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Failed to upload avatar."})
			return
		}

		if _, err := db.Exec("UPDATE Users SET AvatarURL = ? WHERE UserID = ?", url, userID); err != nil {
			c.Log.WithError(err).Error("error saving avatar url")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Failed to save avatar."})
			return
		}

		utils.ResponseJSON(w, map[string]string{
			"message":    "Avatar updated successfully.",
			"avatar_url": url,
		})
	}
}
