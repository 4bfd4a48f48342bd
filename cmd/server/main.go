package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vkitchen_back_end/internal/archive"
	"vkitchen_back_end/internal/config"
	"vkitchen_back_end/internal/database"
	"vkitchen_back_end/internal/dishes"
	dishhandler "vkitchen_back_end/internal/handlers/dish"
	notifhandler "vkitchen_back_end/internal/handlers/notification"
	orderhandler "vkitchen_back_end/internal/handlers/order"
	payhandler "vkitchen_back_end/internal/handlers/payment"
	"vkitchen_back_end/internal/lifecycle"
	"vkitchen_back_end/internal/notifications"
	"vkitchen_back_end/internal/orders"
	"vkitchen_back_end/internal/payments"
	"vkitchen_back_end/internal/realtime"
	"vkitchen_back_end/internal/routes"
	"vkitchen_back_end/internal/utils"
	"vkitchen_back_end/internal/webhookevents"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
	"github.com/stripe/stripe-go/v83"
)

func main() {
	config.Load()

	if os.Getenv("JWT_SECRET") == "" {
		log.Fatal("❌ Cannot start: missing JWT_SECRET")
	}

	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
	if stripe.Key == "" {
		log.Fatal("❌ Cannot initialize Stripe: missing secret key")
	}
	if os.Getenv("STRIPE_WEBHOOK_SECRET") == "" {
		log.Fatal("❌ Cannot initialize Stripe: missing webhook secret")
	}
	log.Println("✅ Stripe initialized")

	database.ConnectDatabases()
	initOAuthProviders()

	ordersSession, err := database.GetOrdersSession()
	if err != nil {
		log.Fatal("❌ Orders keyspace unavailable:", err)
	}
	menuSession, err := database.GetMenuSession()
	if err != nil {
		log.Fatal("❌ Menu keyspace unavailable:", err)
	}

	orderStore := orders.NewStore(ordersSession)
	dishStore := dishes.NewStore(menuSession)
	notifStore := notifications.NewStore(ordersSession, database.Redis)
	eventStore := webhookevents.NewStore(ordersSession)

	hub := realtime.NewHub()
	mailer := utils.NewMailer()
	provider := payments.NewStripeProvider()

	coordinator := lifecycle.New(&lifecycle.Coordinator{
		Orders:        orderStore,
		Notifications: notifStore,
		Events:        eventStore,
		Menu:          dishStore,
		Payments:      provider,
		Hub:           hub,
		Mail:          mailer,
		OrderNumbers:  orders.NewCountingGenerator(orders.NewRedisCounter(database.Redis), orderStore),
		EventNumbers:  orders.NewTimeGenerator(),
	})
	if database.MinIO != nil {
		coordinator.Archive = webhookevents.NewArchiver(database.MinIO)
	}
	if database.Elastic != nil {
		coordinator.Index = archive.NewIndexer(database.Elastic)
	}

	r := gin.Default()
	routes.RegisterRoutes(r, routes.Deps{
		Orders:        orderhandler.NewHandler(coordinator, orderStore),
		Payments:      payhandler.NewHandler(coordinator, provider),
		Notifications: notifhandler.NewHandler(notifStore, hub),
		Dishes:        dishhandler.NewHandler(dishStore),
		Hub:           hub,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		log.Println("🚀 V-Kitchen backend listening on port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("❌ Server error:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Println("❌ Forced shutdown:", err)
	}

	// Drain in-flight side effects before taking the hub away from them.
	coordinator.Effects.Wait()
	hub.Shutdown()
	database.CloseScylla()
	log.Println("✅ Shutdown complete")
}

func initOAuthProviders() {
	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		log.Println("⚠️ SESSION_SECRET not set, social login disabled")
		return
	}

	store := sessions.NewCookieStore([]byte(sessionSecret))
	store.MaxAge(86400 * 30)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   os.Getenv("COOKIE_SECURE") == "true",
		SameSite: http.SameSiteLaxMode,
	}
	gothic.Store = store

	gothic.GetProviderName = func(req *http.Request) (string, error) {
		if provider := req.URL.Query().Get("provider"); provider != "" {
			return provider, nil
		}
		if provider := req.FormValue("provider"); provider != "" {
			return provider, nil
		}
		return "", errors.New("provider not found")
	}

	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	clientID := os.Getenv("GOOGLE_CLIENT_ID")
	clientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		log.Println("⚠️ No OAuth provider configured")
		return
	}

	goth.UseProviders(google.New(clientID, clientSecret, baseURL+"/api/auth/google/callback"))
	log.Println("✅ Google OAuth enabled")
}
