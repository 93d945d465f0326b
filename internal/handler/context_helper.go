package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// halfYearParam reads the :halfYear path segment.
func halfYearParam(c *gin.Context) (models.HalfYear, error) {
	hy, err := models.ParseHalfYear(c.Param("halfYear"))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	return hy, nil
}

// writeMeta records who performed a write in the response meta.
func writeMeta(c *gin.Context) map[string]interface{} {
	claims := claimsFromContext(c)
	if claims == nil {
		return nil
	}
	return map[string]interface{}{"updatedBy": claims.UserID, "role": claims.Role}
}

// splitList accepts both repeated query keys and comma-separated values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// warnings keeps the envelope's warnings key absent when there is nothing to report.
func warnings(advisories []models.Advisory) interface{} {
	if len(advisories) == 0 {
		return nil
	}
	return advisories
}
