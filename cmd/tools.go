package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/franciscosanchezn/gin-token-exchange/internal/config"
	"github.com/franciscosanchezn/gin-token-exchange/internal/invalidation"
	"github.com/franciscosanchezn/gin-token-exchange/internal/middleware"
	"github.com/franciscosanchezn/gin-token-exchange/internal/models"
	"github.com/franciscosanchezn/gin-token-exchange/internal/services"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire every active mapping past its expiry and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		expired, err := a.tokens.SweepExpired(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Expired %d token mappings\n", expired)
		return nil
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Send one rebuild trigger to the edge router",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if _, ok := a.publisher.(*invalidation.RedisPublisher); !ok {
			return errors.New("redis is not available, nothing to publish to")
		}
		a.publisher.Publish(cmd.Context(), "cli")
		return nil
	},
}

var seedFlags struct {
	clientID      string
	name          string
	serviceType   string
	scopes        string
	redirectURI   string
	rateLimit     int
	projectID     string
	clientEmail   string
	privateKeyID  string
	publicKeyFile string
	shared        bool
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a development client and its upstream service account",
	RunE:  runSeed,
}

var adminTokenFlags struct {
	subject string
	role    string
	ttl     time.Duration
}

var adminTokenCmd = &cobra.Command{
	Use:   "admin-token",
	Short: "Mint a bearer token for the admin API",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		token, err := middleware.IssueAdminToken([]byte(cfg.JWTSecret), adminTokenFlags.subject, adminTokenFlags.role, adminTokenFlags.ttl)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	f := seedCmd.Flags()
	f.StringVar(&seedFlags.clientID, "client-id", "dev-client", "OAuth client_id")
	f.StringVar(&seedFlags.name, "name", "Development Client", "Display name")
	f.StringVar(&seedFlags.serviceType, "service-type", "vertex", "Upstream service type")
	f.StringVar(&seedFlags.scopes, "scopes", "https://www.googleapis.com/auth/cloud-platform", "Space separated default scopes")
	f.StringVar(&seedFlags.redirectURI, "redirect-uri", "http://localhost:8085/callback", "Registered redirect URI")
	f.IntVar(&seedFlags.rateLimit, "rate-limit", 60, "Grants per minute, 0 for unlimited")
	f.StringVar(&seedFlags.projectID, "project-id", "dev-project", "Upstream project")
	f.StringVar(&seedFlags.clientEmail, "client-email", "dev-sa@dev-project.iam.gserviceaccount.com", "Upstream service account email")
	f.StringVar(&seedFlags.privateKeyID, "private-key-id", "", "Key ID for the jwt-bearer grant")
	f.StringVar(&seedFlags.publicKeyFile, "public-key-file", "", "PEM public key verifying jwt-bearer assertions")
	f.BoolVar(&seedFlags.shared, "shared", false, "Put the service account in the shared pool")

	a := adminTokenCmd.Flags()
	a.StringVar(&adminTokenFlags.subject, "subject", "ops@localhost", "Token subject")
	a.StringVar(&adminTokenFlags.role, "role", middleware.RoleAdmin, "admin or viewer")
	a.DurationVar(&adminTokenFlags.ttl, "ttl", 24*time.Hour, "Token lifetime")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if existing, err := a.store.FindClientByClientID(cmd.Context(), seedFlags.clientID); err == nil {
		fmt.Printf("Client %q already exists\n", existing.ClientID)
		fmt.Printf("Client token: %s\n", existing.ClientToken)
		return nil
	} else if !errors.Is(err, services.ErrNotFound) {
		return err
	}

	var publicKey []byte
	if seedFlags.publicKeyFile != "" {
		publicKey, err = os.ReadFile(seedFlags.publicKeyFile)
		if err != nil {
			return fmt.Errorf("read public key: %w", err)
		}
	}

	secret, err := randomSecret()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash secret: %w", err)
	}

	client := models.Client{
		ClientID:    seedFlags.clientID,
		ClientToken: "vt-" + uuid.New().String(),
		SecretHash:  string(hash),
		Name:        seedFlags.name,
		ServiceType: seedFlags.serviceType,
		Enabled:     true,
		RateLimit:   seedFlags.rateLimit,
		RedirectURI: seedFlags.redirectURI,
		Scopes:      seedFlags.scopes,
	}
	account := models.UpstreamAccount{
		ProjectID:    seedFlags.projectID,
		ClientEmail:  seedFlags.clientEmail,
		PrivateKeyID: seedFlags.privateKeyID,
		PublicKeyPEM: string(publicKey),
		Enabled:      true,
	}

	err = a.db.WithContext(cmd.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&client).Error; err != nil {
			return err
		}
		if !seedFlags.shared {
			account.ClientID = &client.ID
		}
		return tx.Create(&account).Error
	})
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	log.WithFields(log.Fields{"client_id": client.ClientID, "server_account_id": account.ID}).Info("Development client created")

	fmt.Printf("Client ID: %s\n", client.ClientID)
	fmt.Printf("Client Secret: %s\n", secret)
	fmt.Printf("Client Token: %s\n", client.ClientToken)
	fmt.Printf("Server Account ID: %d\n", account.ID)
	fmt.Println("\nUse these credentials for testing:")
	fmt.Printf("curl -X POST http://%s:%d/token \\\n", a.cfg.Host, a.cfg.Port)
	fmt.Printf("  -d 'grant_type=client_credentials' \\\n")
	fmt.Printf("  -d 'client_id=%s' \\\n", client.ClientID)
	fmt.Printf("  -d 'client_secret=%s'\n", secret)
	return nil
}

func randomSecret() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
