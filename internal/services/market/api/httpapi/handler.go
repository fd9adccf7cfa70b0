// Package httpapi is the thin JSON binding over the market engine. Routing
// and status-code mapping live here; every rule lives in the engine.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"

	apperrors "github.com/louisbranch/openwork/internal/platform/errors"
	"github.com/louisbranch/openwork/internal/platform/requestctx"
	"github.com/louisbranch/openwork/internal/services/market/domain/contract"
	"github.com/louisbranch/openwork/internal/services/market/domain/job"
	"github.com/louisbranch/openwork/internal/services/market/domain/proposal"
	"github.com/louisbranch/openwork/internal/services/market/lifecycle"
	"github.com/louisbranch/openwork/internal/services/market/workflow"
)

const tracerName = "openwork/market/httpapi"

// idPattern keeps path variables from swallowing the :action suffix.
const idPattern = "[^/:]+"

// Handler binds HTTP routes to the workflow and lifecycle services.
type Handler struct {
	workflow  *workflow.Service
	lifecycle *lifecycle.Manager
	grants    GrantConfig
}

// NewHandler creates the HTTP binding.
func NewHandler(wf *workflow.Service, lm *lifecycle.Manager, grants GrantConfig) *Handler {
	return &Handler{workflow: wf, lifecycle: lm, grants: grants}
}

// Router builds the versioned route table. Every route requires an
// authenticated principal.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.traced, h.authenticated)

	r.HandleFunc("/v1/jobs", h.createJob).Methods(http.MethodPost)
	r.HandleFunc("/v1/jobs", h.listJobs).Methods(http.MethodGet)
	r.HandleFunc("/v1/jobs/{id:"+idPattern+"}:publish", h.publishJob).Methods(http.MethodPost)
	r.HandleFunc("/v1/jobs/{id:"+idPattern+"}:cancel", h.cancelJob).Methods(http.MethodPost)
	r.HandleFunc("/v1/jobs/{id:"+idPattern+"}", h.getJob).Methods(http.MethodGet)
	r.HandleFunc("/v1/jobs/{id:"+idPattern+"}/proposals", h.submitProposal).Methods(http.MethodPost)
	r.HandleFunc("/v1/jobs/{id:"+idPattern+"}/proposals", h.listProposalsByJob).Methods(http.MethodGet)
	r.HandleFunc("/v1/jobs/{id:"+idPattern+"}/proposals/{pid:"+idPattern+"}:accept", h.acceptProposal).Methods(http.MethodPost)
	r.HandleFunc("/v1/jobs/{id:"+idPattern+"}/contract", h.getContractByJob).Methods(http.MethodGet)

	r.HandleFunc("/v1/proposals", h.listProposals).Methods(http.MethodGet)
	r.HandleFunc("/v1/proposals/{id:"+idPattern+"}:withdraw", h.withdrawProposal).Methods(http.MethodPost)
	r.HandleFunc("/v1/proposals/{id:"+idPattern+"}:reject", h.rejectProposal).Methods(http.MethodPost)
	r.HandleFunc("/v1/proposals/{id:"+idPattern+"}", h.getProposal).Methods(http.MethodGet)

	r.HandleFunc("/v1/contracts", h.listContracts).Methods(http.MethodGet)
	r.HandleFunc("/v1/contracts/{id:"+idPattern+"}:activate", h.activateContract).Methods(http.MethodPost)
	r.HandleFunc("/v1/contracts/{id:"+idPattern+"}:complete", h.completeContract).Methods(http.MethodPost)
	r.HandleFunc("/v1/contracts/{id:"+idPattern+"}:terminate", h.terminateContract).Methods(http.MethodPost)
	r.HandleFunc("/v1/contracts/{id:"+idPattern+"}:dispute", h.disputeContract).Methods(http.MethodPost)
	r.HandleFunc("/v1/contracts/{id:"+idPattern+"}:resolve", h.resolveDispute).Methods(http.MethodPost)
	r.HandleFunc("/v1/contracts/{id:"+idPattern+"}", h.getContract).Methods(http.MethodGet)
	r.HandleFunc("/v1/contracts/{id:"+idPattern+"}/milestones/{mid:"+idPattern+"}", h.updateMilestone).Methods(http.MethodPatch)

	return r
}

func (h *Handler) traced(next http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path)
		defer span.End()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		principal, err := ValidateGrant(token, h.grants)
		if err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(requestctx.WithPrincipal(r.Context(), principal)))
	})
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

// requireRole returns the authenticated principal, writing a Forbidden
// response when the role does not match.
func requireRole(w http.ResponseWriter, r *http.Request, role requestctx.Role) (requestctx.Principal, bool) {
	principal, ok := requestctx.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apperrors.New(apperrors.CodeForbidden, "authentication required"))
		return requestctx.Principal{}, false
	}
	if principal.Role != role {
		writeError(w, apperrors.New(apperrors.CodeForbidden, "role not permitted for this action"))
		return requestctx.Principal{}, false
	}
	return principal, true
}

func requireAny(w http.ResponseWriter, r *http.Request) (requestctx.Principal, bool) {
	principal, ok := requestctx.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apperrors.New(apperrors.CodeForbidden, "authentication required"))
		return requestctx.Principal{}, false
	}
	return principal, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, apperrors.NewValidation("invalid request body", []apperrors.FieldViolation{
			{Field: "body", Description: "request body must be valid JSON"},
		}))
		return false
	}
	return true
}

func (h *Handler) createJob(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, requestctx.RoleClient)
	if !ok {
		return
	}
	var req createJobRequest
	if !decodeBody(w, r, &req) {
		return
	}
	draft := job.Draft{
		Title:       req.Title,
		Description: req.Description,
		Skills:      req.Skills,
		Budget:      req.BudgetCents,
	}
	// Unparseable labels stay unspecified so validation reports them.
	draft.PaymentType, _ = job.ParsePaymentType(req.PaymentType)
	draft.ExperienceLevel, _ = job.ParseExperienceLevel(req.ExperienceLevel)
	if req.Deadline != nil {
		draft.Deadline = *req.Deadline
	}
	created, err := h.workflow.CreateJob(r.Context(), principal.ID, draft)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toJobResponse(created))
}

func (h *Handler) listJobs(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, requestctx.RoleClient)
	if !ok {
		return
	}
	records, err := h.workflow.ListJobsByClient(r.Context(), principal.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]jobResponse, 0, len(records))
	for _, record := range records {
		resp = append(resp, toJobResponse(record))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAny(w, r); !ok {
		return
	}
	record, err := h.workflow.GetJob(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(record))
}

func (h *Handler) publishJob(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, requestctx.RoleClient)
	if !ok {
		return
	}
	record, err := h.workflow.PublishJob(r.Context(), mux.Vars(r)["id"], principal.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(record))
}

func (h *Handler) cancelJob(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, requestctx.RoleClient)
	if !ok {
		return
	}
	record, err := h.workflow.CancelJob(r.Context(), mux.Vars(r)["id"], principal.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(record))
}

func (h *Handler) submitProposal(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, requestctx.RoleFreelancer)
	if !ok {
		return
	}
	var req submitProposalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	created, err := h.workflow.SubmitProposal(r.Context(), mux.Vars(r)["id"], principal.ID, proposal.Draft{
		FreelancerName: req.FreelancerName,
		CoverLetter:    req.CoverLetter,
		ProposedBudget: req.ProposedBudgetCents,
		EstimatedDays:  req.EstimatedDays,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProposalResponse(created))
}

func (h *Handler) listProposalsByJob(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAny(w, r); !ok {
		return
	}
	records, err := h.workflow.ListProposalsByJob(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]proposalResponse, 0, len(records))
	for _, record := range records {
		resp = append(resp, toProposalResponse(record))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) listProposals(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, requestctx.RoleFreelancer)
	if !ok {
		return
	}
	records, err := h.workflow.ListProposalsByFreelancer(r.Context(), principal.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]proposalResponse, 0, len(records))
	for _, record := range records {
		resp = append(resp, toProposalResponse(record))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getProposal(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAny(w, r); !ok {
		return
	}
	record, err := h.workflow.GetProposal(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProposalResponse(record))
}

func (h *Handler) withdrawProposal(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, requestctx.RoleFreelancer)
	if !ok {
		return
	}
	record, err := h.workflow.WithdrawProposal(r.Context(), mux.Vars(r)["id"], principal.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProposalResponse(record))
}

func (h *Handler) rejectProposal(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, requestctx.RoleClient)
	if !ok {
		return
	}
	record, err := h.workflow.RejectProposal(r.Context(), mux.Vars(r)["id"], principal.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProposalResponse(record))
}

func (h *Handler) acceptProposal(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, requestctx.RoleClient)
	if !ok {
		return
	}
	var req acceptProposalRequest
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}
	terms := contract.Terms{
		Title:       req.Title,
		Description: req.Description,
	}
	for _, m := range req.Milestones {
		draft := contract.MilestoneDraft{Title: m.Title, Amount: m.AmountCents}
		if m.DueDate != nil {
			draft.DueDate = *m.DueDate
		}
		terms.Milestones = append(terms.Milestones, draft)
	}
	vars := mux.Vars(r)
	created, err := h.workflow.AcceptProposal(r.Context(), vars["id"], vars["pid"], principal.ID, terms)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toContractResponse(created))
}

func (h *Handler) getContract(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAny(w, r); !ok {
		return
	}
	record, err := h.lifecycle.GetContract(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContractResponse(record))
}

func (h *Handler) getContractByJob(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAny(w, r); !ok {
		return
	}
	record, err := h.lifecycle.GetContractByJob(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContractResponse(record))
}

func (h *Handler) listContracts(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireAny(w, r)
	if !ok {
		return
	}
	records, err := h.lifecycle.ListContractsByParty(r.Context(), principal.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]contractResponse, 0, len(records))
	for _, record := range records {
		resp = append(resp, toContractResponse(record))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) activateContract(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, requestctx.RoleClient)
	if !ok {
		return
	}
	record, err := h.lifecycle.Activate(r.Context(), mux.Vars(r)["id"], principal.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContractResponse(record))
}

func (h *Handler) completeContract(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, requestctx.RoleClient)
	if !ok {
		return
	}
	record, err := h.lifecycle.Complete(r.Context(), mux.Vars(r)["id"], principal.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContractResponse(record))
}

func (h *Handler) terminateContract(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireAny(w, r)
	if !ok {
		return
	}
	var req terminateRequest
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}
	record, err := h.lifecycle.Terminate(r.Context(), mux.Vars(r)["id"], principal.ID, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContractResponse(record))
}

func (h *Handler) disputeContract(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireAny(w, r)
	if !ok {
		return
	}
	record, err := h.lifecycle.Dispute(r.Context(), mux.Vars(r)["id"], principal.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContractResponse(record))
}

func (h *Handler) resolveDispute(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireAny(w, r)
	if !ok {
		return
	}
	var req resolveDisputeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	outcome, _ := contract.ParseStatus(req.Outcome)
	record, err := h.lifecycle.ResolveDispute(r.Context(), mux.Vars(r)["id"], principal.ID, outcome, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContractResponse(record))
}

func (h *Handler) updateMilestone(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, requestctx.RoleClient)
	if !ok {
		return
	}
	var req updateMilestoneRequest
	if !decodeBody(w, r, &req) {
		return
	}
	status, valid := contract.ParseMilestoneStatus(req.Status)
	if !valid {
		writeError(w, apperrors.NewValidation("invalid milestone status", []apperrors.FieldViolation{
			{Field: "status", Description: "status must be pending, completed, or failed"},
		}))
		return
	}
	vars := mux.Vars(r)
	record, err := h.lifecycle.SetMilestoneStatus(r.Context(), vars["id"], vars["mid"], principal.ID, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContractResponse(record))
}
