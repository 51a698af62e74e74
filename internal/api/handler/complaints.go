package handler

import (
	"net/http"

	"resolveflow/backend/internal/complaint"

	"github.com/gin-gonic/gin"
)

type assignRequest struct {
	AgentID string `json:"agentId"`
}

type statusRequest struct {
	Status            string `json:"status"`
	ResolutionDetails string `json:"resolutionDetails"`
}

type feedbackRequest struct {
	Rating   int    `json:"rating"`
	Comments string `json:"comments"`
}

// RegisterComplaint handles POST /api/complaint.
func (h *Handler) RegisterComplaint(c *gin.Context) {
	var req complaint.Details
	if !h.bindJSON(c, &req) {
		return
	}
	cmp, err := h.Complaints.Register(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Complaint registered successfully", "complaint": cmp})
}

// MyComplaints handles GET /api/my.
func (h *Handler) MyComplaints(c *gin.Context) {
	list, err := h.Complaints.ListForActor(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ComplaintCounts handles GET /api/list.
func (h *Handler) ComplaintCounts(c *gin.Context) {
	counts, err := h.Complaints.Counts(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

// AllComplaints handles GET /api/allComplaints.
func (h *Handler) AllComplaints(c *gin.Context) {
	list, err := h.Complaints.ListAll(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetComplaint handles GET /api/complaint/:id.
func (h *Handler) GetComplaint(c *gin.Context) {
	cmp, err := h.Complaints.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cmp)
}

// AssignComplaint handles PUT /api/complaint/:id/assign.
func (h *Handler) AssignComplaint(c *gin.Context) {
	var req assignRequest
	if !h.bindJSON(c, &req) {
		return
	}
	cmp, err := h.Complaints.Assign(c.Request.Context(), actorFrom(c), c.Param("id"), req.AgentID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Complaint assigned successfully", "complaint": cmp})
}

// UpdateStatus handles PUT /api/complaint/:id/status.
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	cmp, err := h.Complaints.UpdateStatus(c.Request.Context(), actorFrom(c), c.Param("id"), req.Status, req.ResolutionDetails)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Complaint status updated successfully", "complaint": cmp})
}

// SubmitFeedback handles PUT /api/complaint/:id/feedback.
func (h *Handler) SubmitFeedback(c *gin.Context) {
	var req feedbackRequest
	if !h.bindJSON(c, &req) {
		return
	}
	cmp, err := h.Complaints.SubmitFeedback(c.Request.Context(), actorFrom(c), c.Param("id"), req.Rating, req.Comments)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Feedback submitted successfully", "complaint": cmp})
}

// SystemWorkload handles GET /api/workload.
func (h *Handler) SystemWorkload(c *gin.Context) {
	w, err := h.Complaints.Workload(c.Request.Context(), actorFrom(c), "")
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// AgentWorkload handles GET /api/agents/:agentId/workload.
func (h *Handler) AgentWorkload(c *gin.Context) {
	w, err := h.Complaints.Workload(c.Request.Context(), actorFrom(c), c.Param("agentId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}
