package httpapi

import (
	"net/http"
	"strings"

	"github.com/arhaval/yonetim-sub000/pkg/ledger"
	"github.com/gin-gonic/gin"
)

const (
	headerActorID   = "X-Actor-ID"
	headerActorRole = "X-Actor-Role"
	actorContextKey = "backoffice_actor"
)

// Role is the capability set an upstream gateway vouches for.
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleContentCreator Role = "content_creator"
	RoleVoiceActor     Role = "voice_actor"
	RoleTeam           Role = "team"
)

// Actor is the authenticated caller.
type Actor struct {
	ID   string
	Role Role
}

func parseRole(raw string) (Role, bool) {
	switch role := Role(strings.ToLower(strings.TrimSpace(raw))); role {
	case RoleAdmin, RoleContentCreator, RoleVoiceActor, RoleTeam:
		return role, true
	default:
		return "", false
	}
}

// requireActor rejects requests without a recognised identity.
func requireActor() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		actorID := strings.TrimSpace(ctx.GetHeader(headerActorID))
		role, ok := parseRole(ctx.GetHeader(headerActorRole))
		if actorID == "" || !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing or unknown actor"))
			return
		}
		ctx.Set(actorContextKey, Actor{ID: actorID, Role: role})
		ctx.Next()
	}
}

// allowRoles rejects actors outside roles before the handler runs.
func allowRoles(roles ...Role) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		actor := actorFrom(ctx)
		for _, role := range roles {
			if actor.Role == role {
				ctx.Next()
				return
			}
		}
		ctx.AbortWithStatusJSON(http.StatusForbidden, errorResponse("forbidden", "role may not perform this action"))
	}
}

func actorFrom(ctx *gin.Context) Actor {
	value, ok := ctx.Get(actorContextKey)
	if !ok {
		return Actor{}
	}
	actor, _ := value.(Actor)
	return actor
}

// mayActOnScript is the ownership half of the capability check. Admins act on
// every script; creators on their own; voice actors on the script they hold.
func mayActOnScript(actor Actor, script ledger.Script) bool {
	switch actor.Role {
	case RoleAdmin:
		return true
	case RoleContentCreator:
		return script.CreatorID == actor.ID
	case RoleVoiceActor:
		return script.VoiceActorID == actor.ID
	default:
		return false
	}
}
