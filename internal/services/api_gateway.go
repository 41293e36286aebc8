package services

import (
	"context"
	"errors"
	"time"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/logger"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/models"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/repositories"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// GatewayResult is the outcome of a successful gateway request
type GatewayResult struct {
	RequestID  string              `json:"request_id"`
	State      models.RequestState `json:"state"`
	Provider   string              `json:"provider"`
	Endpoint   string              `json:"endpoint"`
	Model      string              `json:"model"`
	StatusCode int                 `json:"status_code"`
	Data       interface{}         `json:"data"`
}

// route is the catalog snapshot a request runs against
type route struct {
	provider     *models.Provider
	model        *models.AIModel
	endpoint     *models.Endpoint
	mappingSet   *models.MappingSet
	parameterSet *models.ParameterSet
}

// apiGatewayService implements APIGatewayService
type apiGatewayService struct {
	logger         *logger.Logger
	validator      *models.ValidationService
	catalog        repositories.CatalogRepository
	requestLogRepo repositories.RequestLogRepository
	transformer    TransformationService
	repairer       StructuralRepairer
	dispatcher     ProviderDispatcher
	metrics        *GatewayMetrics
}

// NewAPIGatewayService creates a new API gateway service
func NewAPIGatewayService(
	logger *logger.Logger,
	validator *models.ValidationService,
	catalog repositories.CatalogRepository,
	requestLogRepo repositories.RequestLogRepository,
	transformer TransformationService,
	repairer StructuralRepairer,
	dispatcher ProviderDispatcher,
	metrics *GatewayMetrics,
) APIGatewayService {
	return &apiGatewayService{
		logger:         logger,
		validator:      validator,
		catalog:        catalog,
		requestLogRepo: requestLogRepo,
		transformer:    transformer,
		repairer:       repairer,
		dispatcher:     dispatcher,
		metrics:        metrics,
	}
}

// requestRun tracks one request through the state machine
type requestRun struct {
	id      string
	caller  *models.Caller
	started time.Time
	state   models.RequestState
	log     *logrus.Entry

	provider string
	endpoint string
	model    string
}

func (r *requestRun) advance(state models.RequestState) {
	r.state = state
	r.log.WithField("state", state).Debug("Gateway request state changed")
}

// HandleRequest runs an inbound canonical request through lookup, mapping, repair and dispatch
func (s *apiGatewayService) HandleRequest(ctx context.Context, caller *models.Caller, requestID string, body map[string]interface{}) (*GatewayResult, error) {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	run := &requestRun{
		id:      requestID,
		caller:  caller,
		started: time.Now(),
		log:     s.logger.WithRequest(requestID),
	}

	result, err := s.handle(ctx, run, body)
	s.finish(ctx, run, result, err)
	return result, err
}

func (s *apiGatewayService) handle(ctx context.Context, run *requestRun, body map[string]interface{}) (*GatewayResult, error) {
	if run.caller == nil || run.caller.ID == "" {
		return nil, NewUnauthorizedError("caller credential is missing or invalid")
	}
	run.log = run.log.WithField("caller_id", run.caller.ID)
	run.advance(models.StateAuthenticated)

	req, err := models.ParseGatewayRequest(body)
	if err != nil {
		return nil, NewBadRequestError(err.Error(), nil)
	}
	if err := s.validator.ValidateStruct(req); err != nil {
		var validationErr *models.ValidationError
		if errors.As(err, &validationErr) {
			return nil, NewBadRequestError(validationErr.Error(), nil)
		}
		return nil, NewBadRequestError("invalid request", err)
	}
	run.provider, run.endpoint, run.model = req.Provider, req.ProviderFunction, req.Model

	rt, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	run.provider, run.endpoint, run.model = rt.provider.Slug, rt.endpoint.Name, rt.model.Slug
	run.log = run.log.WithFields(logrus.Fields{
		"provider": run.provider,
		"endpoint": run.endpoint,
		"model":    run.model,
	})
	run.advance(models.StateCatalogResolved)

	inbound := make(map[string]interface{}, len(req.Body))
	for key, value := range req.Body {
		inbound[key] = value
	}
	if req.IsAuto() {
		inbound[models.FieldModel] = rt.model.Slug
	}

	transformed := s.transformer.Transform(ctx, inbound, rt.mappingSet.Records, rt.parameterSet.Defaults)
	run.advance(models.StateMapped)

	meta := ProviderMeta{
		ProviderName: rt.provider.Name,
		EndpointURL:  rt.endpoint.URL,
		DisplayName:  rt.endpoint.DisplayName,
	}
	repaired, outcome := s.repairer.Repair(ctx, transformed, meta, rt.endpoint.Schema)
	if s.metrics != nil {
		s.metrics.ObserveRepair(outcome)
	}
	if outcome == RepairApplied {
		transformed = repaired
		run.advance(models.StateRepaired)
	}

	prepared, err := s.dispatcher.Prepare(ctx, rt.endpoint.URL, transformed, rt.provider.Slug)
	if err != nil {
		return nil, err
	}
	run.advance(models.StateAuthenticatedToProvider)

	run.advance(models.StateDispatched)
	resp, err := s.dispatcher.Send(ctx, prepared)
	if err != nil {
		return nil, err
	}

	return &GatewayResult{
		RequestID:  run.id,
		State:      models.StateSucceeded,
		Provider:   run.provider,
		Endpoint:   run.endpoint,
		Model:      run.model,
		StatusCode: resp.StatusCode,
		Data:       resp.Body,
	}, nil
}

// resolve performs the catalog lookups. Any miss is NOT_FOUND naming the entity.
func (s *apiGatewayService) resolve(ctx context.Context, req models.GatewayRequest) (*route, error) {
	rt := &route{}

	if req.Provider == "" {
		model, err := s.catalog.GetDefaultModel(ctx, "")
		if err != nil {
			return nil, NewConfigurationError("catalog lookup failed", err)
		}
		if model == nil || model.Provider == nil || !model.Provider.IsActive {
			return nil, NewNotFoundError("default model", models.AutoModel)
		}
		rt.model, rt.provider = model, model.Provider
	} else {
		provider, err := s.catalog.GetProviderBySlug(ctx, req.Provider)
		if err != nil {
			return nil, NewConfigurationError("catalog lookup failed", err)
		}
		if provider == nil {
			return nil, NewNotFoundError("provider", req.Provider)
		}
		rt.provider = provider

		var model *models.AIModel
		if req.IsAuto() {
			model, err = s.catalog.GetDefaultModel(ctx, provider.ID)
		} else {
			model, err = s.catalog.GetModel(ctx, provider.ID, req.Model)
		}
		if err != nil {
			return nil, NewConfigurationError("catalog lookup failed", err)
		}
		if model == nil {
			return nil, NewNotFoundError("model", req.Model)
		}
		rt.model = model
	}

	var err error
	if req.ProviderFunction == "" {
		rt.endpoint, err = s.catalog.GetDefaultEndpoint(ctx, rt.provider.ID)
	} else {
		rt.endpoint, err = s.catalog.GetEndpoint(ctx, rt.provider.ID, req.ProviderFunction)
	}
	if err != nil {
		return nil, NewConfigurationError("catalog lookup failed", err)
	}
	if rt.endpoint == nil {
		name := req.ProviderFunction
		if name == "" {
			name = "default"
		}
		return nil, NewNotFoundError("endpoint", name)
	}

	rt.mappingSet, err = s.catalog.GetActiveMappingSet(ctx, rt.endpoint.ID)
	if err != nil {
		return nil, NewConfigurationError("catalog lookup failed", err)
	}
	if rt.mappingSet == nil {
		return nil, NewNotFoundError("mapping set", rt.endpoint.Name)
	}

	rt.parameterSet, err = s.catalog.GetParameterSet(ctx, rt.mappingSet.ParameterSetID)
	if err != nil {
		return nil, NewConfigurationError("catalog lookup failed", err)
	}
	if rt.parameterSet == nil {
		return nil, NewNotFoundError("parameter set", rt.mappingSet.ParameterSetID)
	}

	return rt, nil
}

// finish logs the terminal outcome, records metrics and writes the request log
func (s *apiGatewayService) finish(ctx context.Context, run *requestRun, result *GatewayResult, err error) {
	elapsed := time.Since(run.started)
	entry := run.log.WithField("duration_ms", elapsed.Milliseconds())

	record := &models.RequestLog{
		RequestID:  run.id,
		Provider:   run.provider,
		Endpoint:   run.endpoint,
		Model:      run.model,
		DurationMS: elapsed.Milliseconds(),
	}
	if run.caller != nil {
		record.CallerID = run.caller.ID
	}

	outcome := string(models.StateSucceeded)
	if err != nil {
		gwErr := AsGatewayError(err)
		run.state = gwErr.State()
		outcome = string(gwErr.Code)
		record.State = run.state
		record.ErrorCode = string(gwErr.Code)
		record.StatusCode = gwErr.HTTPStatus

		entry = entry.WithError(err).WithField("state", run.state)
		switch gwErr.Code {
		case ErrorCodeProvider, ErrorCodeConfiguration:
			entry.Error("Gateway request failed")
		default:
			entry.Warn("Gateway request rejected")
		}

		if gwErr.Code == ErrorCodeProvider && gwErr.ProviderStatus > 0 && s.metrics != nil {
			s.metrics.ObserveProviderStatus(run.provider, gwErr.ProviderStatus)
		}
	} else {
		run.advance(models.StateSucceeded)
		record.State = models.StateSucceeded
		record.StatusCode = result.StatusCode
		entry.WithField("status_code", result.StatusCode).Info("Gateway request succeeded")
		if s.metrics != nil {
			s.metrics.ObserveProviderStatus(run.provider, result.StatusCode)
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveRequest(run.provider, outcome, elapsed)
	}

	if s.requestLogRepo != nil {
		if err := s.requestLogRepo.Create(ctx, record); err != nil {
			run.log.WithError(err).Warn("Failed to write request log")
		}
	}
}
