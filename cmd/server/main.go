package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	agegrouphandler "cohort/internal/agegroup/handler"
	agegroupmodels "cohort/internal/agegroup/models"
	agegroupservice "cohort/internal/agegroup/service"
	agegroupstore "cohort/internal/agegroup/store"
	analyticscache "cohort/internal/analytics/cache"
	analyticsmodels "cohort/internal/analytics/models"
	analyticsservice "cohort/internal/analytics/service"
	analyticsstore "cohort/internal/analytics/store"
	consentmodels "cohort/internal/consent/models"
	consentservice "cohort/internal/consent/service"
	consentstore "cohort/internal/consent/store"
	eligibilityservice "cohort/internal/eligibility/service"
	jwttoken "cohort/internal/jwt_token"
	"cohort/internal/notify"
	organizationhandler "cohort/internal/organization/handler"
	orgmodels "cohort/internal/organization/models"
	organizationservice "cohort/internal/organization/service"
	organizationstore "cohort/internal/organization/store"
	"cohort/internal/platform/config"
	"cohort/internal/platform/httpserver"
	"cohort/internal/platform/logger"
	"cohort/internal/platform/metrics"
	"cohort/internal/platform/postgres"
	platformredis "cohort/internal/platform/redis"
	spacehandler "cohort/internal/space/handler"
	spacemodels "cohort/internal/space/models"
	spaceservice "cohort/internal/space/service"
	spacestore "cohort/internal/space/store"
	httptransport "cohort/internal/transport/http"
	userhandler "cohort/internal/user/handler"
	usermodels "cohort/internal/user/models"
	userservice "cohort/internal/user/service"
	userstore "cohort/internal/user/store"
	id "cohort/pkg/domain"
)

// Store method sets shared by the in-memory and Postgres implementations.
// main picks one implementation per store based on configuration and wires it
// into every service that needs it.
type (
	userStore interface {
		Create(ctx context.Context, u *usermodels.User) error
		FindByID(ctx context.Context, userID id.UserID) (*usermodels.User, error)
		ListByOrganization(ctx context.Context, orgID id.OrganizationID) ([]*usermodels.User, error)
		SetOrganization(ctx context.Context, userID id.UserID, orgID id.OrganizationID) error
		GrantRole(ctx context.Context, a usermodels.RoleAssignment) error
		ListRoles(ctx context.Context, userID id.UserID) ([]usermodels.RoleAssignment, error)
		ListRolesByOrganization(ctx context.Context, orgID id.OrganizationID) ([]usermodels.RoleAssignment, error)
	}
	organizationStore interface {
		Create(ctx context.Context, org *orgmodels.Organization) error
		FindByID(ctx context.Context, orgID id.OrganizationID) (*orgmodels.Organization, error)
		List(ctx context.Context) ([]*orgmodels.Organization, error)
	}
	ageGroupStore interface {
		Create(ctx context.Context, g *agegroupmodels.AgeGroup) error
		FindByID(ctx context.Context, groupID id.AgeGroupID) (*agegroupmodels.AgeGroup, error)
		FindForAge(ctx context.Context, age int) (*agegroupmodels.AgeGroup, error)
		List(ctx context.Context) ([]*agegroupmodels.AgeGroup, error)
	}
	spaceStore interface {
		Create(ctx context.Context, sp *spacemodels.Space) error
		FindByID(ctx context.Context, spaceID id.SpaceID) (*spacemodels.Space, error)
		ListByOrganization(ctx context.Context, orgID id.OrganizationID) ([]*spacemodels.Space, error)
		Update(ctx context.Context, sp *spacemodels.Space) error
		ParticipantCount(ctx context.Context, spaceID id.SpaceID) (int, error)
	}
	consentStore interface {
		Create(ctx context.Context, c *consentmodels.ParentalConsent) error
		FindByUser(ctx context.Context, userID id.UserID) (*consentmodels.ParentalConsent, error)
		Save(ctx context.Context, c *consentmodels.ParentalConsent) error
	}
	snapshotStore interface {
		Append(ctx context.Context, snap *analyticsmodels.Snapshot) error
		Latest(ctx context.Context, orgID id.OrganizationID) (*analyticsmodels.Snapshot, error)
		Previous(ctx context.Context, orgID id.OrganizationID) (*analyticsmodels.Snapshot, error)
	}
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}

	var (
		users     userStore
		orgs      organizationStore
		ageGroups ageGroupStore
		spaces    spaceStore
		consents  consentStore
		snapshots snapshotStore
	)
	if pool != nil {
		users = userstore.NewPostgres(pool.Pool)
		orgs = organizationstore.NewPostgres(pool.Pool)
		ageGroups = agegroupstore.NewPostgres(pool.Pool)
		spaces = spacestore.NewPostgres(pool.Pool)
		consents = consentstore.NewPostgres(pool.Pool)
		snapshots = analyticsstore.NewPostgres(pool.Pool)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		users = userstore.NewInMemory()
		orgs = organizationstore.NewInMemory()
		groups := agegroupstore.NewInMemory()
		seedAgeGroups(ctx, log, groups)
		ageGroups = groups
		spaces = spacestore.NewInMemory()
		consents = consentstore.NewInMemory()
		snapshots = analyticsstore.NewInMemory()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}

	var notifier notify.Notifier
	if len(cfg.KafkaBrokers) > 0 {
		kafkaNotifier, err := notify.NewKafkaNotifier(ctx, cfg.KafkaBrokers, log)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
	} else {
		log.Warn("KAFKA_BROKERS not set, consent notifications go to the log")
		notifier = notify.NewLogNotifier(log)
	}

	var snapshotCache analyticsservice.Cache
	if redisClient != nil {
		snapshotCache = analyticscache.New(redisClient.Client)
	}

	ageGroupSvc := agegroupservice.New(ageGroups)
	consentSvc := consentservice.New(consents, users,
		consentservice.WithNotifier(notifier),
		consentservice.WithLogger(log),
		consentservice.WithMetrics(m),
	)
	userSvc := userservice.New(users, orgs, ageGroups, consents,
		userservice.WithLogger(log),
		userservice.WithMetrics(m),
	)
	analyticsSvc := analyticsservice.New(users, orgs, snapshots,
		analyticsservice.WithCache(snapshotCache),
		analyticsservice.WithLogger(log),
		analyticsservice.WithMetrics(m),
	)
	orgSvc := organizationservice.New(orgs, ageGroups, spaces, snapshots,
		organizationservice.WithLogger(log),
		organizationservice.WithMetrics(m),
	)
	spaceSvc := spaceservice.New(spaces, spaceservice.WithLogger(log))
	eligibilitySvc := eligibilityservice.New(users, spaces, ageGroups, consents,
		eligibilityservice.WithLogger(log),
		eligibilityservice.WithMetrics(m),
	)

	jwtValidator := jwttoken.NewService(cfg.JWTSigningKey, "cohort", "cohort-api")

	checks := map[string]httptransport.HealthChecker{}
	if pool != nil {
		checks["postgres"] = pool
	}
	if redisClient != nil {
		checks["redis"] = redisClient
	}

	router := httptransport.NewRouter(httptransport.Config{
		Logger:  log,
		Metrics: m,
		Handlers: []httptransport.Registrar{
			agegrouphandler.New(ageGroupSvc, log),
			userhandler.New(userSvc, consentSvc, log),
			organizationhandler.New(orgSvc, userSvc, analyticsSvc, log, jwtValidator),
			spacehandler.New(spaceSvc, eligibilitySvc, log, jwtValidator),
		},
		Checks: checks,
	})

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting cohort", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if pool != nil {
		pool.Close()
	}
}

// seedAgeGroups loads the six canonical brackets into a fresh in-memory
// store. The Postgres path seeds through cmd/seed instead.
func seedAgeGroups(ctx context.Context, log *slog.Logger, store ageGroupStore) {
	for _, g := range agegroupmodels.DefaultGroups(time.Now()) {
		if err := store.Create(ctx, g); err != nil {
			log.Warn("age group seeding failed", "name", g.Name, "error", err)
		}
	}
}
