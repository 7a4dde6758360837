package apiapp

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ivankudzin/plutonic/backend/internal/config"
	"github.com/ivankudzin/plutonic/backend/internal/infra/metrics"
	redrepo "github.com/ivankudzin/plutonic/backend/internal/repo/redis"
	authsvc "github.com/ivankudzin/plutonic/backend/internal/services/auth"
	candidatessvc "github.com/ivankudzin/plutonic/backend/internal/services/candidates"
	matchessvc "github.com/ivankudzin/plutonic/backend/internal/services/matches"
	mediasvc "github.com/ivankudzin/plutonic/backend/internal/services/media"
	meetupssvc "github.com/ivankudzin/plutonic/backend/internal/services/meetups"
	messagessvc "github.com/ivankudzin/plutonic/backend/internal/services/messages"
	"github.com/ivankudzin/plutonic/backend/internal/services/notifications"
	pushsvc "github.com/ivankudzin/plutonic/backend/internal/services/push"
	userssvc "github.com/ivankudzin/plutonic/backend/internal/services/users"
	"github.com/ivankudzin/plutonic/backend/internal/transport/http/handlers"
)

const restTimeout = 30 * time.Second

type Dependencies struct {
	AuthService      *authsvc.Service
	UserService      *userssvc.Service
	CandidateService *candidatessvc.Service
	MatchService     *matchessvc.Service
	MessageService   *messagessvc.Service
	MeetupService    *meetupssvc.Service
	MediaService     *mediasvc.Service
	PushService      *pushsvc.Service
	ChangeBus        *redrepo.ChangeBus
	HealthChecks     map[string]handlers.Pinger
	Logger           *zap.Logger
	Config           config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	authHandler := handlers.NewAuthHandler(deps.AuthService)
	healthHandler := handlers.NewHealthHandler(deps.HealthChecks)
	profileHandler := handlers.NewProfileHandler(deps.UserService)
	candidateHandler := handlers.NewCandidateHandler(deps.CandidateService)
	matchesHandler := handlers.NewMatchesHandler(deps.MatchService)
	messagesHandler := handlers.NewMessagesHandler(deps.MessageService)
	meetupsHandler := handlers.NewMeetupsHandler(deps.MeetupService)
	mediaHandler := handlers.NewMediaHandler(deps.MediaService)
	devicesHandler := handlers.NewDevicesHandler(deps.PushService)
	streamHandler := handlers.NewStreamHandler(subscribeFunc(deps.ChangeBus), handlers.StreamConfig{
		PingInterval:   deps.Config.Realtime.PingInterval,
		SendQueueSize:  deps.Config.Realtime.SendQueueSize,
		MaxMessageSize: deps.Config.Realtime.MaxMessageSize,
		OriginPatterns: originPatterns(deps.Config.HTTP.AllowedOrigins),
	}, deps.Logger)

	var validator tokenValidator
	if deps.AuthService != nil {
		validator = deps.AuthService
	}
	authMW := AuthMiddleware(validator, deps.Logger)

	r.Get("/healthz", healthHandler.Get)
	r.Get("/readyz", healthHandler.Ready)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.With(authMW).Get("/stream", streamHandler.Handle)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(restTimeout))

			r.Route("/auth", func(r chi.Router) {
				r.Post("/signup", authHandler.Signup)
				r.Post("/login", authHandler.Login)
				r.Post("/refresh", authHandler.Refresh)
				r.With(authMW).Post("/logout", authHandler.Logout)
				r.With(authMW).Post("/logout_all", authHandler.LogoutAll)
			})

			r.Group(func(r chi.Router) {
				r.Use(authMW)

				r.Get("/me", profileHandler.Me)
				r.Patch("/me", profileHandler.Update)
				r.Post("/me/photo/upload", mediaHandler.PhotoUpload)
				r.Post("/me/photo/confirm", mediaHandler.PhotoConfirm)
				r.Get("/users/{user_id}", profileHandler.Get)

				r.Get("/candidates", candidateHandler.List)

				r.Get("/quota", matchesHandler.Quota)
				r.Post("/premium", matchesHandler.UpgradePremium)
				r.Get("/matches", matchesHandler.List)
				r.Post("/matches/like", matchesHandler.Like)
				r.Post("/matches/superlike", matchesHandler.SuperLike)
				r.Post("/matches/undo", matchesHandler.Undo)
				r.Post("/matches/{match_id}/accept", matchesHandler.Accept)
				r.Post("/matches/{match_id}/decline", matchesHandler.Decline)

				r.Get("/matches/{match_id}/messages", messagesHandler.List)
				r.Post("/matches/{match_id}/messages", messagesHandler.Send)
				r.Post("/matches/{match_id}/read", messagesHandler.MarkRead)
				r.Get("/conversations", messagesHandler.Conversations)
				r.Get("/messages/unread", messagesHandler.UnreadCount)

				r.Get("/meetups", meetupsHandler.List)
				r.Post("/meetups", meetupsHandler.Create)
				r.Post("/meetups/{invite_id}/accept", meetupsHandler.Accept)
				r.Post("/meetups/{invite_id}/decline", meetupsHandler.Decline)
				r.Post("/meetups/{invite_id}/propose_time", meetupsHandler.ProposeTime)
				r.Post("/meetups/{invite_id}/accept_proposed_time", meetupsHandler.AcceptProposedTime)
				r.Post("/meetups/{invite_id}/cancel", meetupsHandler.Cancel)

				r.Post("/devices", devicesHandler.Register)
				r.Post("/devices/unregister", devicesHandler.Unregister)
			})
		})
	})
}

func subscribeFunc(bus *redrepo.ChangeBus) handlers.SubscribeFunc {
	if bus == nil {
		return nil
	}
	return func(ctx context.Context, userID string) (notifications.Subscription, error) {
		sub, err := bus.Subscribe(ctx, userID)
		if err != nil {
			return nil, err
		}
		return sub, nil
	}
}
