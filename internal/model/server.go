package model

import (
	"time"

	"gorm.io/datatypes"
)

const ServerTableName = "servers"

// Server is a remote build machine registered to an organization,
// described by the architectures and feature tags it supports. A server is
// eligible for a build iff it is active, supports the build's architecture
// and carries all of its required features.
type Server struct {
	ID             string `gorm:"primaryKey;size:36" json:"id"`
	OrganizationID string `gorm:"size:36;not null;uniqueIndex:uk_org_server" json:"organization_id"`
	Name           string `gorm:"size:64;not null;uniqueIndex:uk_org_server" json:"name"`
	DisplayName    string `gorm:"size:128" json:"display_name"`

	Host        string `gorm:"size:255;not null" json:"host"`
	Port        int    `gorm:"not null" json:"port"`
	SSHUsername string `gorm:"size:64;not null" json:"ssh_username"`

	Architectures datatypes.JSONSlice[string] `json:"architectures"`
	Features      datatypes.JSONSlice[string] `json:"features"`

	Active          bool       `gorm:"not null;default:true" json:"active"`
	LastHealthCheck *time.Time `json:"last_health_check"`

	CreatedBy string    `gorm:"size:36;not null" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Server) TableName() string {
	return ServerTableName
}

// SupportsArchitecture reports whether the server can build for arch.
func (s *Server) SupportsArchitecture(arch string) bool {
	for _, a := range s.Architectures {
		if a == arch {
			return true
		}
	}
	return false
}

// SupportsFeatures reports whether every required feature is present.
func (s *Server) SupportsFeatures(features []string) bool {
	for _, required := range features {
		found := false
		for _, f := range s.Features {
			if f == required {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
