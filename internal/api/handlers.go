package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aiwuxian/resonance-wiki/internal/models"
	"github.com/aiwuxian/resonance-wiki/internal/report"
	"github.com/aiwuxian/resonance-wiki/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	wikiService      *services.WikiService
	simulatorService *services.SimulatorService
	advisorService   *services.AdvisorService
}

func NewHandler(wikiService *services.WikiService, simulatorService *services.SimulatorService,
	advisorService *services.AdvisorService) *Handler {
	return &Handler{
		wikiService:      wikiService,
		simulatorService: simulatorService,
		advisorService:   advisorService,
	}
}

// getCustomAdvisor 从请求头获取自定义API配置并创建AdvisorService
func (h *Handler) getCustomAdvisor(c *gin.Context) *services.AdvisorService {
	apiKey := c.GetHeader("X-Custom-API-Key")
	if apiKey == "" {
		return h.advisorService
	}

	return services.NewAdvisorService(models.LLMConfig{
		Provider: "openai",
		APIKey:   apiKey,
		APIBase:  c.GetHeader("X-Custom-API-Base"),
		Model:    c.GetHeader("X-Custom-API-Model"),
	})
}

// errorStatus 服务层错误对应的 HTTP 状态码
func errorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrResonatorNotFound),
		errors.Is(err, services.ErrEchoSetNotFound),
		errors.Is(err, services.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrWeaponNotFound),
		errors.Is(err, services.ErrWeaponMismatch),
		errors.Is(err, services.ErrInvalidSlot),
		errors.Is(err, services.ErrEchoNotFound),
		errors.Is(err, services.ErrEchoCostMismatch),
		errors.Is(err, services.ErrIllegalMainStat),
		errors.Is(err, services.ErrInvalidLevel),
		errors.Is(err, services.ErrUnknownStat):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrAdvisorDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(errorStatus(err), gin.H{"error": err.Error()})
}

func slotParam(c *gin.Context) (int, bool) {
	slot, err := strconv.Atoi(c.Param("slot"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "槽位参数错误"})
		return 0, false
	}
	return slot, true
}

// ListResonators 共鸣者列表，可按元素和武器类型过滤
func (h *Handler) ListResonators(c *gin.Context) {
	c.JSON(http.StatusOK, h.wikiService.ListResonators(c.Query("element"), c.Query("weapon")))
}

// GetResonator 共鸣者详情
func (h *Handler) GetResonator(c *gin.Context) {
	detail, err := h.wikiService.GetResonator(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// ListWeapons 武器列表
func (h *Handler) ListWeapons(c *gin.Context) {
	c.JSON(http.StatusOK, h.wikiService.ListWeapons(c.Query("type")))
}

// ListEchoes 声骸列表，cost 为空时返回全部
func (h *Handler) ListEchoes(c *gin.Context) {
	cost := 0
	if raw := c.Query("cost"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cost 参数错误"})
			return
		}
		cost = n
	}
	c.JSON(http.StatusOK, h.wikiService.ListEchoes(cost))
}

func (h *Handler) ListEchoSets(c *gin.Context) {
	c.JSON(http.StatusOK, h.wikiService.ListEchoSets())
}

func (h *Handler) GetEchoSet(c *gin.Context) {
	set, err := h.wikiService.GetEchoSet(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, set)
}

// GetStatRanges 主副词条数值区间
func (h *Handler) GetStatRanges(c *gin.Context) {
	c.JSON(http.StatusOK, h.wikiService.GetStatRanges())
}

// Evaluate 无状态计算
func (h *Handler) Evaluate(c *gin.Context) {
	var req services.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误"})
		return
	}

	result, err := h.simulatorService.EvaluateStateless(req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CreateBuild 创建配装
func (h *Handler) CreateBuild(c *gin.Context) {
	var req struct {
		ResonatorID string `json:"resonatorId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误"})
		return
	}

	build, err := h.simulatorService.CreateBuild(req.ResonatorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, build)
}

func (h *Handler) ListBuilds(c *gin.Context) {
	c.JSON(http.StatusOK, h.simulatorService.ListBuilds())
}

func (h *Handler) GetBuild(c *gin.Context) {
	build, err := h.simulatorService.GetBuild(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, build)
}

// UpdateBuild 部分更新配装
func (h *Handler) UpdateBuild(c *gin.Context) {
	var req services.BuildUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误"})
		return
	}

	build, err := h.simulatorService.UpdateBuild(c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, build)
}

func (h *Handler) DeleteBuild(c *gin.Context) {
	if err := h.simulatorService.DeleteBuild(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AssignEcho 装备或卸下声骸
func (h *Handler) AssignEcho(c *gin.Context) {
	slot, ok := slotParam(c)
	if !ok {
		return
	}
	var req struct {
		EchoID string `json:"echoId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误"})
		return
	}

	build, err := h.simulatorService.AssignEcho(c.Param("id"), slot, req.EchoID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, build)
}

// AssignMainStat 选择主词条
func (h *Handler) AssignMainStat(c *gin.Context) {
	slot, ok := slotParam(c)
	if !ok {
		return
	}
	var req struct {
		Stat string `json:"stat" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误"})
		return
	}

	build, err := h.simulatorService.AssignMainStat(c.Param("id"), slot, req.Stat)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, build)
}

// MainStatOptions 槽位可选主词条
func (h *Handler) MainStatOptions(c *gin.Context) {
	slot, ok := slotParam(c)
	if !ok {
		return
	}
	options, err := h.simulatorService.MainStatOptions(c.Param("id"), slot)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"options": options})
}

// RollSubStats 重新投掷单个槽位的副词条
func (h *Handler) RollSubStats(c *gin.Context) {
	slot, ok := slotParam(c)
	if !ok {
		return
	}
	build, err := h.simulatorService.RollSubStats(c.Param("id"), slot)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, build)
}

func (h *Handler) RollAll(c *gin.Context) {
	build, err := h.simulatorService.RollAll(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, build)
}

// EvaluateBuild 计算会话中配装的属性
func (h *Handler) EvaluateBuild(c *gin.Context) {
	result, err := h.simulatorService.EvaluateBuild(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ExportBuild 导出 xlsx
func (h *Handler) ExportBuild(c *gin.Context) {
	id := c.Param("id")
	result, err := h.simulatorService.EvaluateBuild(id)
	if err != nil {
		respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteBuildSheet(&buf, result); err != nil {
		requestLog(c).Error().Err(err).Str("build", id).Msg("导出配装失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "导出失败"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="build-%s.xlsx"`, id))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// Advise 配装建议
func (h *Handler) Advise(c *gin.Context) {
	advisor := h.getCustomAdvisor(c)
	if !advisor.Enabled() {
		respondError(c, services.ErrAdvisorDisabled)
		return
	}

	result, err := h.simulatorService.EvaluateBuild(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	advice, err := advisor.Advise(c.Request.Context(), result)
	if err != nil {
		requestLog(c).Warn().Err(err).Msg("生成配装建议失败")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"advice": advice})
}
