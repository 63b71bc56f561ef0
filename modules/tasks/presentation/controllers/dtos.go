package controllers

import "github.com/iota-uz/sprintboard/modules/tasks/services/taskimport"

type EditCellDTO struct {
	Field string          `json:"field" validate:"required"`
	Value taskimport.Cell `json:"value"`
}

type CommitDTO struct {
	Mode string `json:"mode" validate:"required,oneof=append overwrite"`
}

type IgnoreResponse struct {
	Row     int  `json:"row"`
	Ignored bool `json:"ignored"`
}
