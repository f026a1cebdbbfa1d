package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/health-records-service/internal/api/http/handlers"
	"github.com/spec-kit/health-records-service/internal/auth"
	"github.com/spec-kit/health-records-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Appointments   *handlers.AppointmentsHandler
	Notifications  *handlers.NotificationsHandler
	MedicalRecords *handlers.MedicalRecordsHandler
	LabReports     *handlers.LabReportsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes. The authentication middleware runs for
// every request and decides itself which paths bypass it; role guards sit on
// the administration routes, everything else is gated inside the services.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Use(cfg.AuthMiddleware.Handle)

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/authenticate", cfg.Auth.Authenticate)

	public := api.Group("/public")
	public.Get("/doctors", cfg.Users.ListDoctors)

	users := api.Group("/users")
	users.Get("/doctors", cfg.Users.ListDoctors)
	users.Get("/patients", auth.RequireRoles(domain.RoleAdmin, domain.RoleDoctor), cfg.Users.ListPatients)
	users.Get("/", auth.RequireRoles(domain.RoleAdmin), cfg.Users.List)
	users.Post("/", auth.RequireRoles(domain.RoleAdmin), cfg.Users.Create)
	users.Get("/:id", auth.RequireRoles(domain.RoleAdmin), cfg.Users.Get)
	users.Put("/:id", auth.RequireRoles(domain.RoleAdmin), cfg.Users.Update)
	users.Delete("/:id", auth.RequireRoles(domain.RoleAdmin), cfg.Users.Delete)

	appointments := api.Group("/appointments")
	appointments.Post("/simple", cfg.Appointments.CreateSimple)
	appointments.Get("/my", cfg.Appointments.ListMine)
	appointments.Get("/upcoming", cfg.Appointments.ListUpcoming)
	appointments.Get("/range", cfg.Appointments.ListByDateRange)
	appointments.Get("/", cfg.Appointments.List)
	appointments.Post("/", cfg.Appointments.Create)
	appointments.Get("/:id", cfg.Appointments.Get)
	appointments.Put("/:id", cfg.Appointments.Update)
	appointments.Delete("/:id", cfg.Appointments.Delete)
	appointments.Post("/:id/confirm", cfg.Appointments.Confirm)
	appointments.Post("/:id/reject", cfg.Appointments.Reject)
	appointments.Post("/:id/cancel", cfg.Appointments.Cancel)

	records := api.Group("/medical-records")
	records.Get("/my", cfg.MedicalRecords.ListMine)
	records.Get("/patient/:id", cfg.MedicalRecords.ListByPatient)
	records.Get("/", cfg.MedicalRecords.List)
	records.Post("/", cfg.MedicalRecords.Create)
	records.Get("/:id", cfg.MedicalRecords.Get)
	records.Put("/:id", cfg.MedicalRecords.Update)
	records.Delete("/:id", cfg.MedicalRecords.Delete)

	labReports := api.Group("/lab-reports")
	labReports.Get("/my", cfg.LabReports.ListMine)
	labReports.Get("/patient/:id", cfg.LabReports.ListByPatient)
	labReports.Get("/", cfg.LabReports.List)
	labReports.Post("/", cfg.LabReports.Create)
	labReports.Get("/:id", cfg.LabReports.Get)
	labReports.Put("/:id", cfg.LabReports.Update)
	labReports.Delete("/:id", cfg.LabReports.Delete)
	labReports.Post("/:id/file", cfg.LabReports.AttachFile)
	labReports.Get("/:id/download", cfg.LabReports.Download)

	notifications := api.Group("/notifications")
	notifications.Get("/unread", cfg.Notifications.ListUnread)
	notifications.Get("/count", cfg.Notifications.CountUnread)
	notifications.Put("/read-all", cfg.Notifications.MarkAllRead)
	notifications.Get("/", cfg.Notifications.List)
	notifications.Get("/:id", cfg.Notifications.Get)
	notifications.Put("/:id/read", cfg.Notifications.MarkRead)
}
