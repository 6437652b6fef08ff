package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"event-manager/config"
	"event-manager/controllers"
	"event-manager/driver"
	"event-manager/services"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	if err := godotenv.Load(); err != nil {
		log.Warn("no .env file found, using environment as-is")
	}
	if os.Getenv("SECRET") == "" {
		log.Fatal("SECRET variable is not set")
	}
	cfg := config.Load()

	db, err := driver.ConnectDB(cfg.DatabaseDSN)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()
	if err := driver.Migrate(db); err != nil {
		log.WithError(err).Fatal("schema migration failed")
	}

	mailer := services.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPPassword, cfg.MailQueueSize, log)
	defer mailer.Close()

	registrationService := services.NewRegistrationService(services.NewMySQLStore(db), log)

	controller := controllers.Controller{Log: log}
	eventController := &controllers.EventController{Log: log}
	registrationController := &controllers.RegistrationController{Service: registrationService, Mailer: mailer, Log: log}
	paymentController := &controllers.PaymentController{Service: registrationService, Mailer: mailer, Log: log}
	feedbackController := &controllers.FeedbackController{Log: log}
	reportController := &controllers.ReportController{Log: log}

	router := mux.NewRouter()

	router.HandleFunc("/signup", controller.Signup(db)).Methods("POST")
	router.HandleFunc("/login", controller.Login(db)).Methods("POST")
	router.HandleFunc("/getMe", controller.GetMe(db)).Methods("GET")
	router.HandleFunc("/upload-avatar", controller.UploadAvatar(db)).Methods("POST")

	router.HandleFunc("/dashboard", eventController.Dashboard(db)).Methods("GET")
	router.HandleFunc("/create-event", eventController.CreateEvent(db)).Methods("POST")
	router.HandleFunc("/events", eventController.GetEvents(db)).Methods("GET")

	router.HandleFunc("/register-event/{eventId:[0-9]+}", registrationController.RegisterForEvent(db)).Methods("POST")
	router.HandleFunc("/cancel-registration/{registrationId:[0-9]+}", registrationController.CancelRegistration(db)).Methods("POST")
	router.HandleFunc("/my-registrations", registrationController.MyRegistrations(db)).Methods("GET")

	router.HandleFunc("/payments", paymentController.GetPayments(db)).Methods("GET")
	router.HandleFunc("/complete-payment/{paymentId:[0-9]+}", paymentController.CompletePayment(db)).Methods("GET")

	router.HandleFunc("/submit-feedback/{eventId:[0-9]+}", feedbackController.SubmitFeedback(db)).Methods("POST")
	router.HandleFunc("/event-feedback/{eventId:[0-9]+}", feedbackController.EventFeedback(db)).Methods("GET")

	router.HandleFunc("/create-report", reportController.CreateReport(db)).Methods("POST")
	router.HandleFunc("/event-reports", reportController.EventReports(db)).Methods("GET")
	router.HandleFunc("/view-reports", reportController.ViewReports(db)).Methods("GET")

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	log.Info("server stopped")
}
