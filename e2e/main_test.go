package e2e

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

const (
	adminUser     = "testuser"
	adminPassword = "Testpass123!"
)

var (
	appURL string
)

func TestMain(m *testing.M) {
	os.Exit(runTestMain(m))
}

func runTestMain(m *testing.M) int {
	workDir, err := os.MkdirTemp("", "paycheck-e2e-")
	if err != nil {
		fmt.Printf("Failed to create work dir: %v\n", err)
		return 1
	}
	defer os.RemoveAll(workDir)

	bin, err := buildServer(workDir)
	if err != nil {
		fmt.Println(err)
		return 1
	}

	port, err := freePort()
	if err != nil {
		fmt.Printf("Failed to find a free port: %v\n", err)
		return 1
	}
	appURL = "http://127.0.0.1:" + port

	server := exec.Command(bin)
	server.Env = append(os.Environ(),
		"PORT="+port,
		"DB_DRIVER=sqlite",
		"DB_PATH="+filepath.Join(workDir, "data", "paycheck.db"),
		"ADMIN_USER="+adminUser,
		"ADMIN_PASSWORD="+adminPassword,
		"AMQP_URL=",
		"LOG_LEVEL=warn",
	)
	server.Stdout = os.Stdout
	server.Stderr = os.Stderr
	if err := server.Start(); err != nil {
		fmt.Printf("Failed to start server: %v\n", err)
		return 1
	}
	defer stopServer(server)

	if err := waitReady(10 * time.Second); err != nil {
		fmt.Printf("Server never became ready: %v\n", err)
		return 1
	}

	return m.Run()
}

// buildServer compiles cmd/server into dir. go test may run from the module
// root or from e2e/.
func buildServer(dir string) (string, error) {
	pkg := "../cmd/server"
	if _, err := os.Stat(pkg); err != nil {
		pkg = "./cmd/server"
	}
	bin := filepath.Join(dir, "paycheck-server")
	out, err := exec.Command("go", "build", "-o", bin, pkg).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("build %s: %v\n%s", pkg, err, out)
	}
	return bin, nil
}

func freePort() (string, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	defer l.Close()
	_, port, err := net.SplitHostPort(l.Addr().String())
	return port, err
}

// waitReady polls until the database answers and the seeded admin can
// sign in, which means migrations and seeding have both finished.
func waitReady(timeout time.Duration) error {
	client := &http.Client{Timeout: time.Second}
	deadline := time.Now().Add(timeout)
	lastErr := errors.New("no attempt made")
	for time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)

		if err := expectStatus(client, "/api/health", false); err != nil {
			lastErr = err
			continue
		}
		if err := expectStatus(client, "/api/users/me", true); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

func expectStatus(client *http.Client, path string, asAdmin bool) error {
	req, err := http.NewRequest(http.MethodGet, appURL+path, http.NoBody)
	if err != nil {
		return err
	}
	if asAdmin {
		req.SetBasicAuth(adminUser, adminPassword)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	return nil
}

// stopServer asks for a graceful shutdown and kills the process if it
// lingers.
func stopServer(server *exec.Cmd) {
	done := make(chan error, 1)
	go func() { done <- server.Wait() }()

	if err := server.Process.Signal(syscall.SIGTERM); err != nil {
		fmt.Printf("Failed to signal server: %v\n", err)
	}
	select {
	case <-done:
	case <-time.After(15 * time.Second):
		fmt.Println("Server ignored SIGTERM, killing it")
		_ = server.Process.Kill()
		<-done
	}
}
