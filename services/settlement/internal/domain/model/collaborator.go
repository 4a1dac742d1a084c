package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// The types below are read-only views over tables owned by the farmer,
// lot and quality services. This service never migrates or writes them.

type Farmer struct {
	ID             uuid.UUID                   `gorm:"type:uuid;primary_key"`
	Name           string                      `gorm:"column:name"`
	Phone          string                      `gorm:"column:phone"`
	Certifications datatypes.JSONSlice[string] `gorm:"column:certifications;type:jsonb"`
}

func (Farmer) TableName() string {
	return "farmers"
}

type Lot struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key"`
	FarmerID uuid.UUID `gorm:"type:uuid;column:farmer_id"`
	Code     string    `gorm:"column:code"`
}

func (Lot) TableName() string {
	return "lots"
}

type QualityAssessment struct {
	ID         uuid.UUID                   `gorm:"type:uuid;primary_key"`
	LotID      uuid.UUID                   `gorm:"type:uuid;column:lot_id"`
	Score      float64                     `gorm:"column:quality_score"`
	Grade      string                      `gorm:"column:grade"`
	Defects    datatypes.JSONSlice[string] `gorm:"column:defects;type:jsonb"`
	AssessedAt time.Time                   `gorm:"column:assessed_at"`
}

func (QualityAssessment) TableName() string {
	return "quality_assessments"
}
