package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterTaskRoutes registra las rutas HTTP para el dominio de Tareas.
func RegisterTaskRoutes(r *gin.Engine, handler *TaskHandler) {
	// Agrupamos todas las rutas de tareas bajo el prefijo "/tasks"
	tasks := r.Group("/tasks")
	{
		tasks.POST("", handler.CreateTask)            // Crear una nueva tarea
		tasks.GET("", handler.ListTasks)              // Listar todas las tareas
		tasks.GET("/urgent", handler.ListUrgentTasks) // Pendientes por urgencia
		tasks.GET("/:id", handler.GetTask)            // Obtener una tarea por su ID
		tasks.PUT("/:id", handler.UpdateTask)         // Actualización parcial
		tasks.DELETE("/:id", handler.DeleteTask)      // Eliminar una tarea
	}
}

// RegisterHealthRoute expone GET /health.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
