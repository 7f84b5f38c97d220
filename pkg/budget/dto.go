package budget

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ItemDTO is the JSON form of a BudgetItem, shared by the HTTP API and backups.
type ItemDTO struct {
	Id            string `json:"id"`
	Name          string `json:"name"`
	Amount        int64  `json:"amount"`
	Type          string `json:"type"`
	Category      string `json:"category"`
	FrequencyType string `json:"frequencyType"`
	Interval      int    `json:"interval"`
	StartMonth    int    `json:"startMonth"`
	EndMonth      *int   `json:"endMonth"`
}

func ItemToDTO(item BudgetItem) ItemDTO {
	return ItemDTO{
		Id:            item.Id,
		Name:          item.Name,
		Amount:        item.Amount,
		Type:          string(item.Kind),
		Category:      item.Category,
		FrequencyType: string(item.FrequencyKind),
		Interval:      item.Interval,
		StartMonth:    item.StartMonth,
		EndMonth:      item.Clone().EndMonth,
	}
}

// DTOToItem converts a submitted item. A missing interval of a monthly or yearly item and a
// missing start month are filled in with their defaults.
func DTOToItem(dto ItemDTO) BudgetItem {
	item := BudgetItem{
		Id:            dto.Id,
		Name:          dto.Name,
		Amount:        dto.Amount,
		Kind:          Kind(dto.Type),
		Category:      dto.Category,
		FrequencyKind: FrequencyKind(dto.FrequencyType),
		Interval:      dto.Interval,
		StartMonth:    dto.StartMonth,
		EndMonth:      dto.EndMonth,
	}
	if item.Interval == 0 {
		item.Interval = DefaultInterval(item.FrequencyKind)
	}
	if item.StartMonth == 0 {
		item.StartMonth = 1
	}
	return item.Clone()
}

func ItemsToDTO(items []BudgetItem) []ItemDTO {
	result := make([]ItemDTO, 0, len(items))
	for _, item := range items {
		result = append(result, ItemToDTO(item))
	}
	return result
}

// ItemPatchDTO is a partial item. Absent fields stay untouched, "endMonth": null makes the
// item unbounded.
type ItemPatchDTO struct {
	Name          *string         `json:"name,omitempty"`
	Amount        *int64          `json:"amount,omitempty"`
	Type          *string         `json:"type,omitempty"`
	Category      *string         `json:"category,omitempty"`
	FrequencyType *string         `json:"frequencyType,omitempty"`
	Interval      *int            `json:"interval,omitempty"`
	StartMonth    *int            `json:"startMonth,omitempty"`
	EndMonth      json.RawMessage `json:"endMonth,omitempty"`
}

func DTOToPatch(dto ItemPatchDTO) (ItemPatch, error) {
	patch := ItemPatch{
		Name:       dto.Name,
		Amount:     dto.Amount,
		Category:   dto.Category,
		Interval:   dto.Interval,
		StartMonth: dto.StartMonth,
	}
	if dto.Type != nil {
		kind := Kind(*dto.Type)
		patch.Kind = &kind
	}
	if dto.FrequencyType != nil {
		frequency := FrequencyKind(*dto.FrequencyType)
		patch.FrequencyKind = &frequency
		if patch.Interval == nil && DefaultInterval(frequency) != 0 {
			interval := DefaultInterval(frequency)
			patch.Interval = &interval
		}
	}
	if len(dto.EndMonth) > 0 {
		if bytes.Equal(bytes.TrimSpace(dto.EndMonth), []byte("null")) {
			patch.ClearEndMonth = true
		} else {
			var end int
			if err := json.Unmarshal(dto.EndMonth, &end); err != nil {
				return ItemPatch{}, fmt.Errorf("invalid endMonth: %w", err)
			}
			patch.EndMonth = &end
		}
	}
	return patch, nil
}
