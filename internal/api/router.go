package api

import "github.com/gin-gonic/gin"

// NewRouter 注册所有 API 路由
func NewRouter(handler *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger())

	apiGroup := r.Group("/api")
	{
		// 图鉴
		apiGroup.GET("/resonators", handler.ListResonators)
		apiGroup.GET("/resonators/:id", handler.GetResonator)
		apiGroup.GET("/weapons", handler.ListWeapons)
		apiGroup.GET("/echoes", handler.ListEchoes)
		apiGroup.GET("/echo-sets", handler.ListEchoSets)
		apiGroup.GET("/echo-sets/:id", handler.GetEchoSet)
		apiGroup.GET("/stat-ranges", handler.GetStatRanges)

		// 模拟器
		apiGroup.POST("/simulator/evaluate", handler.Evaluate)

		sessions := apiGroup.Group("/simulator/sessions")
		sessions.POST("", handler.CreateBuild)
		sessions.GET("", handler.ListBuilds)
		sessions.GET("/:id", handler.GetBuild)
		sessions.PATCH("/:id", handler.UpdateBuild)
		sessions.DELETE("/:id", handler.DeleteBuild)
		sessions.PUT("/:id/slots/:slot/echo", handler.AssignEcho)
		sessions.PUT("/:id/slots/:slot/main-stat", handler.AssignMainStat)
		sessions.GET("/:id/slots/:slot/main-stats", handler.MainStatOptions)
		sessions.POST("/:id/slots/:slot/roll", handler.RollSubStats)
		sessions.POST("/:id/roll-all", handler.RollAll)
		sessions.GET("/:id/evaluate", handler.EvaluateBuild)
		sessions.GET("/:id/export", handler.ExportBuild)
		sessions.POST("/:id/advice", handler.Advise)
	}

	return r
}
