/*
Copyright (c) 2025 The orc Authors

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package trust

import (
	"context"
	"errors"
	"fmt"
	"sync"

	orcv1alpha1 "github.com/Danielkiss9/orc/api/v1alpha1"
	"github.com/Danielkiss9/orc/internal/kube"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

const (
	// TokenKey is the secret data key holding the cluster token
	TokenKey = "token"

	managedByLabel = "app.kubernetes.io/managed-by"
	createdByLabel = "app.kubernetes.io/created-by"
	createdByValue = "token-manager"
)

var (
	// ErrNotStored is returned by Token until a token has been stored
	ErrNotStored = errors.New("cluster token is not available")

	// ErrRegistrationTokenMissing means no secret exists and no registration token was supplied
	ErrRegistrationTokenMissing = errors.New("cluster token secret not found and no registration token provided")

	// ErrRegistrationFailed wraps every failure while registering or persisting the token
	ErrRegistrationFailed = errors.New("cluster registration failed")
)

// State is the lifecycle state of the trust manager
type State string

const (
	StateUninitialized State = "Uninitialized"
	StateRegistering   State = "Registering"
	StateStored        State = "Stored"
	StateFailed        State = "Failed"
)

// Registrar exchanges a registration token for a cluster token
type Registrar interface {
	Register(ctx context.Context, req orcv1alpha1.RegistrationRequest) (string, error)
}

// ClusterInfoFunc gathers the cluster description sent with a registration
type ClusterInfoFunc func(ctx context.Context) (orcv1alpha1.ClusterInfo, error)

// Config identifies where the token lives and how to obtain one
type Config struct {
	OperatorName      string
	Namespace         string
	RegistrationToken string
}

// Manager owns the cluster token for the lifetime of the process
type Manager struct {
	store       kube.SecretStore
	registrar   Registrar
	clusterInfo ClusterInfoFunc
	config      Config

	// initMu serializes Initialize; it is held for the whole bootstrap
	initMu      sync.Mutex
	initialized bool
	initErr     error

	mu    sync.RWMutex
	state State
	token string
}

// +kubebuilder:rbac:groups="",resources=secrets,verbs=get;create

// NewManager creates a trust manager in the Uninitialized state
func NewManager(store kube.SecretStore, registrar Registrar, clusterInfo ClusterInfoFunc, cfg Config) *Manager {
	return &Manager{
		store:       store,
		registrar:   registrar,
		clusterInfo: clusterInfo,
		config:      cfg,
		state:       StateUninitialized,
	}
}

// SecretName returns the name of the secret holding the cluster token
func (m *Manager) SecretName() string {
	return m.config.OperatorName + "-cluster-token"
}

// State returns the current lifecycle state
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Token returns the stored cluster token, or ErrNotStored in any other state
func (m *Manager) Token() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != StateStored {
		return "", fmt.Errorf("%w (state %s)", ErrNotStored, m.state)
	}
	return m.token, nil
}

// Initialize loads or obtains the cluster token. It runs at most once per
// process; later calls return the result of the first.
func (m *Manager) Initialize(ctx context.Context) error {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	if m.initialized {
		return m.initErr
	}
	m.initialized = true
	m.initErr = m.initialize(ctx)
	return m.initErr
}

func (m *Manager) initialize(ctx context.Context) error {
	logger := log.FromContext(ctx).WithValues("secret", client.ObjectKey{Namespace: m.config.Namespace, Name: m.SecretName()})

	token, err := m.readToken(ctx)
	if err == nil {
		m.setToken(token)
		logger.Info("Loaded cluster token from secret")
		return nil
	}
	if !apierrors.IsNotFound(err) {
		m.setState(StateFailed)
		return fmt.Errorf("failed to read cluster token secret: %w", err)
	}

	if m.config.RegistrationToken == "" {
		m.setState(StateFailed)
		return ErrRegistrationTokenMissing
	}

	m.setState(StateRegistering)
	logger.Info("No cluster token found, registering cluster")

	info, err := m.clusterInfo(ctx)
	if err != nil {
		m.setState(StateFailed)
		return fmt.Errorf("%w: failed to gather cluster info: %w", ErrRegistrationFailed, err)
	}

	token, err = m.registrar.Register(ctx, orcv1alpha1.RegistrationRequest{
		Token:       m.config.RegistrationToken,
		ClusterInfo: info,
	})
	if err != nil {
		m.setState(StateFailed)
		return fmt.Errorf("%w: %w", ErrRegistrationFailed, err)
	}
	if token == "" {
		m.setState(StateFailed)
		return fmt.Errorf("%w: collector returned an empty token", ErrRegistrationFailed)
	}

	if err := m.store.Create(ctx, m.newSecret(token)); err != nil {
		if !apierrors.IsAlreadyExists(err) {
			m.setState(StateFailed)
			return fmt.Errorf("%w: failed to store cluster token: %w", ErrRegistrationFailed, err)
		}

		// Another replica stored a token first; the stored one wins.
		stored, readErr := m.readToken(ctx)
		if readErr != nil {
			m.setState(StateFailed)
			return fmt.Errorf("%w: failed to read concurrently stored token: %w", ErrRegistrationFailed, readErr)
		}
		m.setToken(stored)
		logger.Info("Cluster token secret already existed, using the stored token")
		return nil
	}

	m.setToken(token)
	logger.Info("Cluster registered and token stored", "version", info.Version, "nodes", info.Nodes)
	return nil
}

func (m *Manager) readToken(ctx context.Context) (string, error) {
	var secret corev1.Secret
	key := client.ObjectKey{Namespace: m.config.Namespace, Name: m.SecretName()}
	if err := m.store.Get(ctx, key, &secret); err != nil {
		return "", err
	}
	token := string(secret.Data[TokenKey])
	if token == "" {
		return "", fmt.Errorf("secret %s has no %q key", key, TokenKey)
	}
	return token, nil
}

func (m *Manager) newSecret(token string) *corev1.Secret {
	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      m.SecretName(),
			Namespace: m.config.Namespace,
			Labels: map[string]string{
				managedByLabel: m.config.OperatorName,
				createdByLabel: createdByValue,
			},
		},
		Type: corev1.SecretTypeOpaque,
		Data: map[string][]byte{
			TokenKey: []byte(token),
		},
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Manager) setToken(token string) {
	m.mu.Lock()
	m.token = token
	m.state = StateStored
	m.mu.Unlock()
}
