package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"
)

// FCMService sends push notifications to approvers through the Firebase
// Cloud Messaging HTTP v1 API.
type FCMService struct {
	projectID   string
	db          *sql.DB
	httpClient  *http.Client
	tokenSource oauth2.TokenSource
}

type serviceAccountCredentials struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	PrivateKey  string `json:"private_key"`
	ClientEmail string `json:"client_email"`
	TokenURI    string `json:"token_uri"`
}

// NewFCMService reads the Firebase service account JSON and prepares an
// OAuth2 token source for the messaging scope.
func NewFCMService(credentialsPath string, db *sql.DB) (*FCMService, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("credentials path is required")
	}
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("error reading credentials file: %v", err)
	}

	var creds serviceAccountCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("error parsing credentials: %v", err)
	}
	if creds.ProjectID == "" || creds.PrivateKey == "" || creds.ClientEmail == "" {
		return nil, fmt.Errorf("credentials file is missing required fields")
	}

	conf := &jwt.Config{
		Email:      creds.ClientEmail,
		PrivateKey: []byte(strings.ReplaceAll(creds.PrivateKey, `\n`, "\n")),
		Scopes:     []string{"https://www.googleapis.com/auth/firebase.messaging"},
		TokenURL:   creds.TokenURI,
	}

	return &FCMService{
		projectID:   creds.ProjectID,
		db:          db,
		httpClient:  &http.Client{},
		tokenSource: conf.TokenSource(context.Background()),
	}, nil
}

type fcmMessage struct {
	Message struct {
		Token        string            `json:"token"`
		Notification map[string]string `json:"notification"`
		Data         map[string]string `json:"data,omitempty"`
	} `json:"message"`
}

// SendToUser pushes a notification to a user's registered device. Users
// without a registered FCM token are skipped silently.
func (fs *FCMService) SendToUser(userID int, title, body string, data map[string]string) {
	var token string
	err := fs.db.QueryRow(`SELECT fcm_token FROM users WHERE id = $1 AND fcm_token <> ''`, userID).Scan(&token)
	if err == sql.ErrNoRows {
		return
	}
	if err != nil {
		log.Printf("FCM: failed to look up token for user %d: %v", userID, err)
		return
	}
	if err := fs.send(token, title, body, data); err != nil {
		log.Printf("FCM: failed to push to user %d: %v", userID, err)
	}
}

func (fs *FCMService) send(deviceToken, title, body string, data map[string]string) error {
	tok, err := fs.tokenSource.Token()
	if err != nil {
		return fmt.Errorf("error obtaining access token: %v", err)
	}

	var msg fcmMessage
	msg.Message.Token = deviceToken
	msg.Message.Notification = map[string]string{"title": title, "body": body}
	msg.Message.Data = data

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("error marshaling message: %v", err)
	}

	url := fmt.Sprintf("https://fcm.googleapis.com/v1/projects/%s/messages:send", fs.projectID)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := fs.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("FCM returned status %d", resp.StatusCode)
	}
	return nil
}
