package controllers

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	helper "github.com/lintang-b-s/graphcut/pkg/http/router/routerhelper"
	"go.uber.org/zap"
)

type solverAPI struct {
	solverService SolverService
	validate      *requestValidator
	hub           *Hub
	log           *zap.Logger
}

func New(solverService SolverService, hub *Hub, log *zap.Logger) *solverAPI {
	return &solverAPI{
		solverService: solverService,
		validate:      newRequestValidator(),
		hub:           hub,
		log:           log,
	}
}

func (api *solverAPI) Routes(group *helper.RouteGroup) {
	group.POST("/solve", api.solve)
	group.POST("/energy", api.energy)
	group.GET("/ws/solve", api.solveStream)
}

// solve runs alpha-expansion or alpha-beta swap on the posted instance.
//
//	@Summary		minimize the energy of a labeling problem
//	@Tags			solver
//	@Accept			json
//	@Produce		json
//	@Param			body	body		solveRequest	true	"instance and solver options"
//	@Success		200		{object}	solveResponse
//	@Failure		400		{object}	errorResponse
//	@Failure		422		{object}	errorResponse
//	@Failure		500		{object}	errorResponse
//	@Router			/solve [post]
func (api *solverAPI) solve(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request solveRequest
	if err := readJSON(w, r, &request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := api.validate.Struct(request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	sol, err := api.solverService.Solve(r.Context(), request.Instance, request.toSolveOptions())
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)
	if err := writeJSON(w, http.StatusOK, envelope{"data": NewSolveResponse(sol)}, headers); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}
}

// energy evaluates a labeling without optimizing it.
//
//	@Summary		energy of a labeling
//	@Tags			solver
//	@Accept			json
//	@Produce		json
//	@Param			body	body		energyRequest	true	"instance and labeling"
//	@Success		200		{object}	energy.Breakdown
//	@Failure		400		{object}	errorResponse
//	@Failure		500		{object}	errorResponse
//	@Router			/energy [post]
func (api *solverAPI) energy(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request energyRequest
	if err := readJSON(w, r, &request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := api.validate.Struct(request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	breakdown, err := api.solverService.Energy(r.Context(), request.Instance, request.Labels)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"data": breakdown}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}
}
