package controllers

import (
	"database/sql"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"event-manager/models"
	"event-manager/utils"
)

type ReportController struct {
	Log *logrus.Logger
}

// CreateReport stores an organizer's post-event write-up with up to six
// attached photos. One report per event; the event must belong to the
// organizer and lie in the past.
func (rpc *ReportController) CreateReport(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		organizerID, err := utils.RequireRole(r, models.RoleOrganizer)
		if err != nil {
			utils.RespondWithError(w, http.StatusForbidden, models.Error{Message: err.Error()})
			return
		}

		if err := r.ParseMultipartForm(32 << 20); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid multipart form."})
			return
		}

		eventID, err := utils.StrToInt(r.FormValue("event_id"))
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid event selection"})
			return
		}
		content := strings.TrimSpace(r.FormValue("content"))
		if content == "" {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "All required fields must be filled"})
			return
		}

		var ownedID int
		err = db.QueryRow(`
			SELECT EventID FROM Events
			WHERE EventID = ? AND OrganizerID = ? AND Date < CURDATE()
			LIMIT 1`, eventID, organizerID).Scan(&ownedID)
		if err == sql.ErrNoRows {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid event selection"})
			return
		} else if err != nil {
			rpc.Log.WithError(err).Error("error verifying event ownership")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error."})
			return
		}

		var existingReport int
		err = db.QueryRow("SELECT ReportID FROM Reports WHERE EventID = ? LIMIT 1", eventID).Scan(&existingReport)
		if err == nil {
			utils.RespondWithError(w, http.StatusConflict, models.Error{Message: "A report already exists for this event"})
			return
		} else if err != sql.ErrNoRows {
			rpc.Log.WithError(err).Error("error checking existing report")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error."})
			return
		}

		tx, err := db.Begin()
		if err != nil {
			rpc.Log.WithError(err).Error("error starting report transaction")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error."})
			return
		}
		defer tx.Rollback()

		res, err := tx.Exec("INSERT INTO Reports (EventID, Content) VALUES (?, ?)", eventID, content)
		if err != nil {
			rpc.Log.WithError(err).Error("error inserting report")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Report creation failed."})
			return
		}
		reportID, _ := res.LastInsertId()

		var files []*multipart.FileHeader
		if r.MultipartForm != nil {
			files = r.MultipartForm.File["photos"]
		}
		if len(files) > models.MaxReportPhotos {
			files = files[:models.MaxReportPhotos]
		}

		stored := 0
		skipped := 0
		for _, f := range files {
			if f.Filename == "" {
				continue
			}
			if !utils.AllowedPhotoFile(f.Filename) {
				skipped++
				continue
			}
			src, err := f.Open()
			if err != nil {
				rpc.Log.WithError(err).Warn("error opening uploaded photo")
				skipped++
				continue
			}
			fileName := fmt.Sprintf("reports/%d/%s-%s%s",
				reportID,
				time.Now().Format("20060102150405"),
				uuid.New().String(),
				strings.ToLower(filepath.Ext(f.Filename)))
			url, err := utils.UploadFileToS3(src, fileName)
			src.Close()
			if err != nil {
				rpc.Log.WithError(err).Error("error uploading report photo")
				utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "An error occurred during file upload"})
				return
			}
			if _, err := tx.Exec("INSERT INTO ReportPhotos (ReportID, Filename) VALUES (?, ?)", reportID, url); err != nil {
				rpc.Log.WithError(err).Error("error recording report photo")
				utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Report creation failed."})
				return
			}
			stored++
		}

		if err := tx.Commit(); err != nil {
			rpc.Log.WithError(err).Error("error committing report")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Report creation failed."})
			return
		}

		utils.ResponseJSON(w, map[string]interface{}{
			"message":        "Report created successfully!",
			"report_id":      reportID,
			"photos_stored":  stored,
			"photos_skipped": skipped,
		})
	}
}

// EventReports lists the organizer's own reports, newest first.
func (rpc *ReportController) EventReports(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		organizerID, err := utils.RequireRole(r, models.RoleOrganizer)
		if err != nil {
			utils.RespondWithError(w, http.StatusForbidden, models.Error{Message: err.Error()})
			return
		}

		reports, err := rpc.queryReports(db, `
			SELECT r.ReportID, r.Content, r.CreatedAt, e.EventName,
			       DATE_FORMAT(e.Date, '%Y-%m-%d') AS EventDate,
			       GROUP_CONCAT(rp.Filename) AS photos
			FROM Reports r
			JOIN Events e ON r.EventID = e.EventID
			LEFT JOIN ReportPhotos rp ON r.ReportID = rp.ReportID
			WHERE e.OrganizerID = ?
			GROUP BY r.ReportID
			ORDER BY r.CreatedAt DESC`, organizerID)
		if err != nil {
			rpc.Log.WithError(err).Error("error querying organizer reports")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error."})
			return
		}
		utils.ResponseJSON(w, map[string]interface{}{"reports": reports})
	}
}

// ViewReports lists reports for all past events, visible to any
// authenticated user.
func (rpc *ReportController) ViewReports(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, _, err := utils.VerifyToken(r); err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, models.Error{Message: err.Error()})
			return
		}

		reports, err := rpc.queryReports(db, `
			SELECT r.ReportID, r.Content, r.CreatedAt, e.EventName,
			       DATE_FORMAT(e.Date, '%Y-%m-%d') AS EventDate,
			       GROUP_CONCAT(rp.Filename) AS photos
			FROM Reports r
			JOIN Events e ON r.EventID = e.EventID
			LEFT JOIN ReportPhotos rp ON r.ReportID = rp.ReportID
			WHERE e.Date < CURDATE()
			GROUP BY r.ReportID
			ORDER BY r.CreatedAt DESC`)
		if err != nil {
			rpc.Log.WithError(err).Error("error querying reports")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error."})
			return
		}
		utils.ResponseJSON(w, map[string]interface{}{"reports": reports})
	}
}

func (rpc *ReportController) queryReports(db *sql.DB, query string, args ...interface{}) ([]models.Report, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []models.Report{}
	for rows.Next() {
		var rep models.Report
		var createdAt time.Time
		var photos sql.NullString
		if err := rows.Scan(&rep.ID, &rep.Content, &createdAt, &rep.EventName, &rep.EventDate, &photos); err != nil {
			return nil, err
		}
		rep.CreatedAt = createdAt.Format("2006-01-02 15:04:05")
		if photos.Valid && photos.String != "" {
			rep.Photos = strings.Split(photos.String, ",")
		} else {
			rep.Photos = []string{}
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}
