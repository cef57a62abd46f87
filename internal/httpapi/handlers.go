package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/globalfund/allocengine/internal/domain"
	"github.com/globalfund/allocengine/pkg/analysis"
)

type analysisHandler struct {
	logger zerolog.Logger
}

func (h *analysisHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// runRequest is the wire shape of one analysis invocation: the parameter
// record plus every table RunAnalysis's Inputs needs, flattened to rows
// since the tabular store has no JSON form of its own.
type runRequest struct {
	Parameters    parametersDTO         `json:"parameters"`
	ModelResults  []modelResultRowDTO   `json:"model_results"`
	PartnerData   []centralSeriesRowDTO `json:"partner_data"`
	PFInputData   []centralSeriesRowDTO `json:"pf_input_data"`
	TgfFunding    []fundingRowDTO       `json:"tgf_funding"`
	NonTgfFunding []fundingRowDTO       `json:"non_tgf_funding"`
}

type parametersDTO struct {
	StartYear              int                   `json:"start_year"`
	EndYear                int                   `json:"end_year"`
	YearsForFundingStart   int                   `json:"years_for_funding_start"`
	YearsForFundingEnd     int                   `json:"years_for_funding_end"`
	YearsForObjFuncStart   int                   `json:"years_for_obj_func_start"`
	YearsForObjFuncEnd     int                   `json:"years_for_obj_func_end"`
	InnovationOn           bool                  `json:"innovation_on"`
	HandleOutOfBoundsCosts bool                  `json:"handle_out_of_bounds_costs"`
	ModelledCountries      []string              `json:"modelled_countries"`
	PortfolioCountries     []string              `json:"portfolio_countries"`
	ObjectiveIndicators    []string              `json:"objective_indicators"`
	Indicators             []indicatorDTO        `json:"indicators"`
	InnovationSchedule     []innovationFactorDTO `json:"innovation_schedule,omitempty"`
	CounterfactualMap      map[string]string     `json:"counterfactual_map,omitempty"`
}

type indicatorDTO struct {
	Name       string `json:"name"`
	UseScaling bool   `json:"use_scaling"`
}

type innovationFactorDTO struct {
	Year      int     `json:"year"`
	Indicator string  `json:"indicator"`
	Factor    float64 `json:"factor"`
}

type modelResultRowDTO struct {
	Scenario        string  `json:"scenario"`
	FundingFraction float64 `json:"funding_fraction"`
	Country         string  `json:"country"`
	Year            int     `json:"year"`
	Indicator       string  `json:"indicator"`
	Low             float64 `json:"low"`
	Central         float64 `json:"central"`
	High            float64 `json:"high"`
}

type centralSeriesRowDTO struct {
	Scenario  string  `json:"scenario"`
	Country   string  `json:"country"`
	Year      int     `json:"year"`
	Indicator string  `json:"indicator"`
	Central   float64 `json:"central"`
}

type fundingRowDTO struct {
	Country string  `json:"country"`
	Amount  float64 `json:"amount"`
}

type runResponse struct {
	RunID    string       `json:"run_id"`
	Warnings []string     `json:"warnings,omitempty"`
	Measures []measureDTO `json:"measures"`
}

type measureDTO struct {
	Name    string   `json:"name"`
	Label   string   `json:"label,omitempty"`
	Value   *float64 `json:"value,omitempty"`
	Columns []string `json:"columns,omitempty"`
	Rows    [][]any  `json:"rows,omitempty"`
}

func toParameters(dto parametersDTO) *domain.Parameters {
	p := &domain.Parameters{
		StartYear:              domain.Year(dto.StartYear),
		EndYear:                domain.Year(dto.EndYear),
		YearsForFunding:        domain.YearRange{Start: domain.Year(dto.YearsForFundingStart), End: domain.Year(dto.YearsForFundingEnd)},
		YearsForObjFunc:        domain.YearRange{Start: domain.Year(dto.YearsForObjFuncStart), End: domain.Year(dto.YearsForObjFuncEnd)},
		InnovationOn:           dto.InnovationOn,
		HandleOutOfBoundsCosts: dto.HandleOutOfBoundsCosts,
		ObjectiveIndicators:    dto.ObjectiveIndicators,
		Indicators:             make(map[string]domain.Indicator, len(dto.Indicators)),
	}
	for _, c := range dto.ModelledCountries {
		p.ModelledCountries = append(p.ModelledCountries, domain.Country(c))
	}
	for _, c := range dto.PortfolioCountries {
		p.PortfolioCountries = append(p.PortfolioCountries, domain.Country(c))
	}
	for _, ind := range dto.Indicators {
		p.Indicators[ind.Name] = domain.Indicator{Name: ind.Name, UseScaling: ind.UseScaling}
	}
	for _, f := range dto.InnovationSchedule {
		p.InnovationSchedule = append(p.InnovationSchedule, domain.InnovationFactor{
			Year: domain.Year(f.Year), Indicator: f.Indicator, Factor: f.Factor,
		})
	}
	if len(dto.CounterfactualMap) > 0 {
		p.CounterfactualMap = make(map[domain.Scenario]domain.Scenario, len(dto.CounterfactualMap))
		for k, v := range dto.CounterfactualMap {
			p.CounterfactualMap[domain.Scenario(k)] = domain.Scenario(v)
		}
	}
	return p
}

func toInputs(req runRequest) (analysis.Inputs, error) {
	mr := domain.NewModelResults()
	for _, row := range req.ModelResults {
		d := domain.Datum{Low: row.Low, Central: row.Central, High: row.High}
		if err := mr.Insert(domain.Scenario(row.Scenario), row.FundingFraction, domain.Country(row.Country), domain.Year(row.Year), row.Indicator, d); err != nil {
			return analysis.Inputs{}, err
		}
	}

	partner := domain.NewPartnerData()
	for _, row := range req.PartnerData {
		if err := partner.Insert(domain.Scenario(row.Scenario), domain.Country(row.Country), domain.Year(row.Year), row.Indicator, row.Central); err != nil {
			return analysis.Inputs{}, err
		}
	}

	pfInput := domain.NewPFInputData()
	for _, row := range req.PFInputData {
		if err := pfInput.Insert(domain.Scenario(row.Scenario), domain.Country(row.Country), domain.Year(row.Year), row.Indicator, row.Central); err != nil {
			return analysis.Inputs{}, err
		}
	}

	tgf := domain.NewTgfFunding()
	for _, row := range req.TgfFunding {
		if err := tgf.Add(domain.Country(row.Country), row.Amount); err != nil {
			return analysis.Inputs{}, err
		}
	}

	nonTgf := domain.NewNonTgfFunding()
	for _, row := range req.NonTgfFunding {
		if err := nonTgf.Add(domain.Country(row.Country), row.Amount); err != nil {
			return analysis.Inputs{}, err
		}
	}

	return analysis.Inputs{
		ModelResults:  mr,
		PartnerData:   partner,
		PFInputData:   pfInput,
		TgfFunding:    tgf,
		NonTgfFunding: nonTgf,
	}, nil
}

func toResponse(result *analysis.PortfolioProjection) runResponse {
	resp := runResponse{RunID: result.RunID}
	for _, w := range result.Warnings {
		resp.Warnings = append(resp.Warnings, w.String())
	}
	for _, name := range result.Report.Names() {
		m, ok := result.Report.Measure(name)
		if !ok {
			continue
		}
		dto := measureDTO{Name: name}
		if m.Scalar != nil {
			dto.Label = m.Scalar.Label
			v := m.Scalar.Value
			dto.Value = &v
		}
		if m.Table != nil {
			dto.Columns = m.Table.Columns
			dto.Rows = m.Table.Rows
		}
		resp.Measures = append(resp.Measures, dto)
	}
	return resp
}

func (h *analysisHandler) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	inputs, err := toInputs(req)
	if err != nil {
		http.Error(w, "invalid inputs: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	params := toParameters(req.Parameters)

	result, err := analysis.RunAnalysis(params, inputs, h.logger)
	if err != nil {
		h.logger.Error().Err(err).Msg("analysis run failed")
		http.Error(w, "analysis failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(toResponse(result)); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}
