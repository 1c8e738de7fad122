package api

import (
	"time"

	"github.com/artur-silva-empresa/Texdex/internal/application"
	"github.com/artur-silva-empresa/Texdex/internal/domain"
	"github.com/artur-silva-empresa/Texdex/internal/ingest"
)

// LoginRequest represents the request to obtain a token
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=100" example:"plan"`
	Password string `json:"password" binding:"max=200"`
}

// UserResponse describes the authenticated user
type UserResponse struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Sector   string `json:"sector"`
}

// LoginResponse carries a bearer token
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// ListOrdersRequest holds the list filters read from the query string
type ListOrdersRequest struct {
	Status          string `form:"status" binding:"omitempty,oneof=open in_production late completed"`
	Priority        string `form:"priority" binding:"omitempty,oneof=any 1 2 3"`
	Manual          bool   `form:"manual"`
	Client          string `form:"client" binding:"max=200"`
	Reference       string `form:"reference" binding:"max=200"`
	DocSeries       string `form:"docSeries" binding:"max=50"`
	HasObservations bool   `form:"hasObservations"`
	Fulfilled       bool   `form:"fulfilled"`
	Sector          string `form:"sector" binding:"omitempty,sector_id"`
	SectorState     string `form:"sectorState" binding:"omitempty,oneof=not_started in_progress completed late"`
	// Week is "current" or any date (YYYY-MM-DD) inside the wanted week
	Week     string `form:"week" binding:"max=10"`
	Search   string `form:"search" binding:"max=200"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"pageSize" binding:"omitempty,min=1,max=1000"`
}

// FilterOptionsRequest narrows the cascading filter options
type FilterOptionsRequest struct {
	DocSeries string `form:"docSeries" binding:"max=50"`
	Client    string `form:"client" binding:"max=200"`
}

// ImportLogsRequest limits the import log listing
type ImportLogsRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}

// UpdateOrderRequest replaces every user field of an order
type UpdateOrderRequest struct {
	Priority       domain.Priority                `json:"priority" binding:"priority_level" example:"1"`
	IsManual       bool                           `json:"isManual"`
	Observations   map[domain.SectorID]string     `json:"sectorObservations" binding:"omitempty,dive,keys,annotation_key,endkeys,max=2000"`
	StopReasons    map[domain.SectorID]string     `json:"sectorStopReasons" binding:"omitempty,dive,keys,annotation_key,endkeys,max=500"`
	PredictedDates map[domain.SectorID]*time.Time `json:"sectorPredictedDates" binding:"omitempty,dive,keys,annotation_key,endkeys"`
}

// ObservationRequest sets one sector note; empty text clears it
type ObservationRequest struct {
	Text string `json:"text" binding:"max=2000" example:"waiting for dye lot"`
}

// DocumentPriorityRequest sets the priority of a whole document
type DocumentPriorityRequest struct {
	Priority domain.Priority `json:"priority" binding:"priority_level" example:"2"`
}

// DocumentManualRequest flags a whole document as manually tracked
type DocumentManualRequest struct {
	IsManual *bool `json:"isManual" binding:"required"`
}

// StopReasonRequest sets one sector stop reason on a document; empty clears it
type StopReasonRequest struct {
	Label string `json:"label" binding:"max=500" example:"Materials > Yarn shortage"`
}

// StopReasonsRequest replaces the stop reason hierarchy
type StopReasonsRequest struct {
	Reasons domain.StopReasonHierarchy `json:"reasons" binding:"required"`
}

// PreviewResponse is a dry run of a spreadsheet import
type PreviewResponse struct {
	Filename string                 `json:"filename"`
	Records  int                    `json:"records"`
	Skipped  int                    `json:"skipped"`
	Warnings int                    `json:"warnings"`
	Samples  []ingest.ParseWarning  `json:"warningSamples,omitempty"`
	States   map[string]int         `json:"states"`
	Orders   []application.OrderDTO `json:"orders"`
}

// StopReasonsResponse wraps the hierarchy with its flattened labels
type StopReasonsResponse struct {
	Reasons domain.StopReasonHierarchy `json:"reasons"`
	Labels  []string                   `json:"labels"`
}
