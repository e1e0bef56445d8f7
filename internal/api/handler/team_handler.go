package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pgvplaning/backend/internal/dto"
	"pgvplaning/backend/internal/service"
	"pgvplaning/backend/pkg/response"
)

// TeamHandler serves teams, members, invites and team-level reports.
type TeamHandler struct {
	teamSvc   service.TeamService
	exportSvc service.ExportService
}

func NewTeamHandler(teamSvc service.TeamService, exportSvc service.ExportService) *TeamHandler {
	return &TeamHandler{teamSvc: teamSvc, exportSvc: exportSvc}
}

// ── Teams ──

// CreateTeam POST /api/v1/teams
func (h *TeamHandler) CreateTeam(c *gin.Context) {
	var req dto.CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "paramètres invalides")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	team, err := h.teamSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		handleTeamError(c, err)
		return
	}

	response.Created(c, team)
}

// ListMyTeams GET /api/v1/teams
func (h *TeamHandler) ListMyTeams(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	teams, err := h.teamSvc.ListMine(c.Request.Context(), callerID)
	if err != nil {
		handleTeamError(c, err)
		return
	}

	response.OK(c, gin.H{"list": teams})
}

// GetTeam GET /api/v1/teams/:id
func (h *TeamHandler) GetTeam(c *gin.Context) {
	id, ok := MustGetParam(c, "id", "identifiant d'équipe manquant")
	if !ok {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	team, err := h.teamSvc.Get(c.Request.Context(), id, callerID)
	if err != nil {
		handleTeamError(c, err)
		return
	}

	response.OK(c, team)
}

// RenameTeam PUT /api/v1/teams/:id
func (h *TeamHandler) RenameTeam(c *gin.Context) {
	id, ok := MustGetParam(c, "id", "identifiant d'équipe manquant")
	if !ok {
		return
	}

	var req dto.RenameTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "paramètres invalides")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	team, err := h.teamSvc.Rename(c.Request.Context(), id, &req, callerID)
	if err != nil {
		handleTeamError(c, err)
		return
	}

	response.OK(c, team)
}

func (h *TeamHandler) TransferOwnership(c *gin.Context) {
	id, ok := MustGetParam(c, "id", "identifiant d'équipe manquant")
	if !ok {
		return
	}

	var req dto.TransferOwnershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "paramètres invalides")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	team, err := h.teamSvc.TransferOwnership(c.Request.Context(), id, &req, callerID)
	if err != nil {
		handleTeamError(c, err)
		return
	}

	response.OK(c, team)
}

// ListMembers GET /api/v1/teams/:id/members
func (h *TeamHandler) ListMembers(c *gin.Context) {
	id, ok := MustGetParam(c, "id", "identifiant d'équipe manquant")
	if !ok {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	members, err := h.teamSvc.Members(c.Request.Context(), id, callerID)
	if err != nil {
		handleTeamError(c, err)
		return
	}

	response.OK(c, gin.H{"list": members})
}

// RemoveMember DELETE /api/v1/teams/:id/members/:userId
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	id, ok := MustGetParam(c, "id", "identifiant d'équipe manquant")
	if !ok {
		return
	}
	userID, ok := MustGetParam(c, "userId", "identifiant de membre manquant")
	if !ok {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.teamSvc.RemoveMember(c.Request.Context(), id, userID, callerID); err != nil {
		handleTeamError(c, err)
		return
	}

	response.OK(c, nil)
}

// LeaveTeam POST /api/v1/teams/:id/leave
func (h *TeamHandler) LeaveTeam(c *gin.Context) {
	id, ok := MustGetParam(c, "id", "identifiant d'équipe manquant")
	if !ok {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.teamSvc.Leave(c.Request.Context(), id, callerID); err != nil {
		handleTeamError(c, err)
		return
	}

	response.OK(c, nil)
}

// ── Invites ──

// GenerateInvite POST /api/v1/teams/:id/invites
func (h *TeamHandler) GenerateInvite(c *gin.Context) {
	id, ok := MustGetParam(c, "id", "identifiant d'équipe manquant")
	if !ok {
		return
	}

	var req dto.GenerateInviteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, 10001, "paramètres invalides")
			return
		}
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	inv, err := h.teamSvc.GenerateInvite(c.Request.Context(), id, &req, callerID)
	if err != nil {
		handleTeamError(c, err)
		return
	}

	response.Created(c, inv)
}

// ListInvites GET /api/v1/teams/:id/invites
func (h *TeamHandler) ListInvites(c *gin.Context) {
	id, ok := MustGetParam(c, "id", "identifiant d'équipe manquant")
	if !ok {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	invites, err := h.teamSvc.ListInvites(c.Request.Context(), id, callerID)
	if err != nil {
		handleTeamError(c, err)
		return
	}

	response.OK(c, gin.H{"list": invites})
}

// RevokeInvite DELETE /api/v1/teams/:id/invites/:inviteId
func (h *TeamHandler) RevokeInvite(c *gin.Context) {
	id, ok := MustGetParam(c, "id", "identifiant d'équipe manquant")
	if !ok {
		return
	}
	inviteID, ok := MustGetParam(c, "inviteId", "identifiant d'invitation manquant")
	if !ok {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.teamSvc.RevokeInvite(c.Request.Context(), id, inviteID, callerID); err != nil {
		handleTeamError(c, err)
		return
	}

	response.OK(c, nil)
}

// ValidateInvite GET /api/v1/invites/:code (public)
func (h *TeamHandler) ValidateInvite(c *gin.Context) {
	code, ok := MustGetParam(c, "code", "code d'invitation manquant")
	if !ok {
		return
	}

	res, err := h.teamSvc.ValidateInvite(c.Request.Context(), code)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, res)
}

// JoinTeam POST /api/v1/teams/join
func (h *TeamHandler) JoinTeam(c *gin.Context) {
	var req dto.JoinTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "paramètres invalides")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	team, err := h.teamSvc.Join(c.Request.Context(), &req, callerID)
	if err != nil {
		handleTeamError(c, err)
		return
	}

	response.OK(c, team)
}

// ── Reports ──

// GetTeamStats GET /api/v1/teams/:id/stats?year=2026
func (h *TeamHandler) GetTeamStats(c *gin.Context) {
	id, ok := MustGetParam(c, "id", "identifiant d'équipe manquant")
	if !ok {
		return
	}

	var q dto.TeamStatsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "paramètres invalides")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	stats, err := h.exportSvc.TeamStats(c.Request.Context(), id, callerID, q.Year)
	if err != nil {
		handleExportError(c, err)
		return
	}

	response.OK(c, gin.H{"year": q.Year, "list": stats})
}

// ExportTeamStats GET /api/v1/teams/:id/stats.xlsx?year=2026
func (h *TeamHandler) ExportTeamStats(c *gin.Context) {
	id, ok := MustGetParam(c, "id", "identifiant d'équipe manquant")
	if !ok {
		return
	}

	var q dto.TeamStatsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "paramètres invalides")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportTeamStats(c.Request.Context(), id, callerID, q.Year)
	if err != nil {
		handleExportError(c, err)
		return
	}

	response.Attachment(c, filename, contentTypeXLSX, buf.Bytes())
}

// ExportTeamICS GET /api/v1/teams/:id/export.ics?status=LEAVE
func (h *TeamHandler) ExportTeamICS(c *gin.Context) {
	id, ok := MustGetParam(c, "id", "identifiant d'équipe manquant")
	if !ok {
		return
	}

	var q dto.CalendarExportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "paramètres invalides")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	data, filename, err := h.exportSvc.ExportTeamICS(c.Request.Context(), id, callerID, &q)
	if err != nil {
		handleExportError(c, err)
		return
	}

	response.Attachment(c, filename, contentTypeICS, data)
}

func handleTeamError(c *gin.Context, err error) {
	if !mapTeamError(c, err) {
		response.InternalError(c)
	}
}

func mapTeamError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, service.ErrTeamNotFound):
		response.NotFound(c, 40001, "équipe introuvable")
	case errors.Is(err, service.ErrNotTeamMember):
		response.Forbidden(c, 40002, "vous n'êtes pas membre de cette équipe")
	case errors.Is(err, service.ErrNotTeamOwner):
		response.Forbidden(c, 40003, "action réservée au propriétaire de l'équipe")
	case errors.Is(err, service.ErrTeamConflict):
		response.Conflict(c, 40004, "l'équipe a été modifiée entre-temps, veuillez recharger")
	case errors.Is(err, service.ErrOwnerCannotLeave):
		response.Conflict(c, 40005, "transférez la propriété ou retirez les autres membres avant de quitter l'équipe")
	case errors.Is(err, service.ErrCannotRemoveOwner):
		response.BadRequest(c, 40006, "le propriétaire ne peut pas être retiré")
	case errors.Is(err, service.ErrMemberNotFound):
		response.NotFound(c, 40007, "membre introuvable")
	case errors.Is(err, service.ErrAlreadyMember):
		response.Conflict(c, 40008, "vous êtes déjà membre de cette équipe")
	case errors.Is(err, service.ErrTeamFull):
		response.Conflict(c, 40009, "l'équipe est complète")
	case errors.Is(err, service.ErrInviteNotFound):
		response.NotFound(c, 40101, "code d'invitation introuvable")
	case errors.Is(err, service.ErrInviteExpired):
		response.Error(c, http.StatusGone, 40102, "code d'invitation expiré")
	case errors.Is(err, service.ErrInviteExhausted):
		response.Error(c, http.StatusGone, 40103, "code d'invitation déjà utilisé")
	default:
		return false
	}
	return true
}
