package entity

// Типы запросов и ответов record API (records.v1.RecordService)

// Record - поля записи; системное поле Id присваивает сервис
type Record map[string]any

const (
	RecordIDField = "Id"

	OperatorEqualTo = "EqualTo"

	SortASC  = "ASC"
	SortDESC = "DESC"

	CodeNotFound = "NOT_FOUND"
	CodeInvalid  = "INVALID"
	CodeInternal = "INTERNAL"
)

type Condition struct {
	FieldName string   `json:"FieldName"`
	Operator  string   `json:"Operator"`
	Values    []string `json:"Values"`
}

type OrderBy struct {
	FieldName string `json:"fieldName"`
	SortType  string `json:"sorttype"`
}

type FetchRecordsRequest struct {
	Table   string      `json:"table"`
	Fields  []string    `json:"fields,omitempty"`
	Where   []Condition `json:"where,omitempty"`
	OrderBy []OrderBy   `json:"orderBy,omitempty"`
}

type FetchRecordsResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    []Record `json:"data"`
}

type CreateRecordRequest struct {
	Table   string   `json:"table"`
	Records []Record `json:"records"`
}

type UpdateRecordRequest struct {
	Table   string   `json:"table"`
	Records []Record `json:"records"` // каждая запись обязана содержать Id
}

type DeleteRecordRequest struct {
	Table     string  `json:"table"`
	RecordIDs []int64 `json:"RecordIds"`
}

type RecordResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	Data    Record `json:"data,omitempty"`
}

type RecordResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Results []RecordResult `json:"results"`
}

// FirstFailure - первая неудачная запись пакета
func (r *RecordResponse) FirstFailure() (RecordResult, bool) {
	for _, result := range r.Results {
		if !result.Success {
			return result, true
		}
	}
	return RecordResult{}, false
}

// ID - системный идентификатор записи (после structpb числа приходят как float64)
func (r Record) ID() (int64, bool) {
	switch v := r[RecordIDField].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
