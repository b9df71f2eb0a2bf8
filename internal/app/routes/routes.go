package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/mvill/rosterbase/internal/app/controllers"
	"github.com/mvill/rosterbase/internal/app/models"
	"github.com/mvill/rosterbase/internal/app/models/dto"
	"github.com/mvill/rosterbase/internal/middleware"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	authController *controllers.AuthController,
	studentController *controllers.StudentController,
	authMiddleware *middleware.AuthMiddleware,
) {
	v1 := router.Group("/api/v1")

	// --- Public Auth routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", authController.Register)
		auth.POST("/login", authController.Login)
	}

	// --- Authenticated routes ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())
	{
		// Administrator account management
		users := authenticated.Group("/auth/users")
		{
			users.GET("", authController.ListUsers)
			users.PATCH("/:id", authController.UpdateUser)
			users.DELETE("/:id", authMiddleware.RoleRequired(string(models.RoleSuperAdmin)), authController.DeleteUser)
		}

		// Student roster routes
		students := authenticated.Group("/students")
		{
			students.GET("", studentController.GetAllStudents)
			students.GET("/validation-stats", studentController.GetValidationStats)
			students.GET("/external-ids/:externalId", studentController.GetExternalIDMatches)
			students.POST("/upload", studentController.UploadStudents)
			students.DELETE("/bulk", studentController.DeleteStudents)
			students.PATCH("/:id", studentController.UpdateStudent)
			students.DELETE("/:id", studentController.DeleteStudent)

			students.GET("/course/:course", studentController.GetStudentsByCourse)
			students.POST("/course/:course", studentController.AddStudent)

			// Emptying a whole partition is restricted to super admins.
			studentsSuperAdmin := students.Group("")
			studentsSuperAdmin.Use(authMiddleware.RoleRequired(string(models.RoleSuperAdmin)))
			{
				studentsSuperAdmin.DELETE("/course/:course/all", studentController.DeleteAllByCourse)
			}
		}
	}

	// Health check endpoint (public)
	v1.GET("/health", func(c *gin.Context) {
		c.JSON(200, dto.NewAPIResponse(gin.H{"status": "ok"}))
	})
}
