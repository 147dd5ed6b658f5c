package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"makerspace-access/internal/router"
)

func TestHTTP_EndToEnd_IntroductionLifecycle(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{}))
	defer ts.Close()

	// 1) Primer usuario registrado queda admin
	adminID := registerUser(t, ts.URL, "admin", "admin@taller.dev")
	tutorID := registerUser(t, ts.URL, "tutor", "tutor@taller.dev")
	memberID := registerUser(t, ts.URL, "member", "member@taller.dev")

	// 2) Admin crea recurso y grupo, y los vincula
	resourceID := createEntity(t, ts.URL, adminID, "/resources", map[string]any{
		"name": "Torno CNC",
	})
	groupID := createEntity(t, ts.URL, adminID, "/resource-groups", map[string]any{
		"name": "Maquinas pesadas",
	})
	{
		st, body := doReq(t, ts.URL, "POST", "/resource-groups/"+groupID+"/resources/"+resourceID, adminID, nil)
		if st != http.StatusNoContent {
			t.Fatalf("expected 204 add to group, got %d body=%s", st, string(body))
		}
	}

	// 3) El tutor sin rol no puede otorgar acceso
	{
		st, _ := doReq(t, ts.URL, "POST", "/resources/"+resourceID+"/introductions", tutorID, map[string]any{
			"receiver_user_id": memberID,
		})
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 before introducer role, got %d", st)
		}
	}

	// 4) Admin da rol de introducer; repetirlo es conflicto
	{
		st, body := doReq(t, ts.URL, "POST", "/resources/"+resourceID+"/introducers", adminID, map[string]any{
			"user_id": tutorID,
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 grant introducer, got %d body=%s", st, string(body))
		}

		st, _ = doReq(t, ts.URL, "POST", "/resources/"+resourceID+"/introducers", adminID, map[string]any{
			"user_id": tutorID,
		})
		if st != http.StatusConflict {
			t.Fatalf("expected 409 duplicate introducer, got %d", st)
		}

		st, body = doReq(t, ts.URL, "GET", "/resources/"+resourceID+"/introducers/"+tutorID, adminID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 introducer status, got %d", st)
		}
		var status map[string]bool
		if err := json.Unmarshal(body, &status); err != nil {
			t.Fatalf("decode introducer status: %v", err)
		}
		if !status["is_introducer"] {
			t.Fatalf("expected tutor to be introducer, got %v", status)
		}

		// el member no puede consultar el status de otro
		st, _ = doReq(t, ts.URL, "GET", "/resources/"+resourceID+"/introducers/"+tutorID, memberID, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 status of another user, got %d", st)
		}
	}

	// 5) El tutor otorga acceso al member
	introID := createEntity(t, ts.URL, tutorID, "/resources/"+resourceID+"/introductions", map[string]any{
		"receiver_user_id": memberID,
		"comment":          "completo el curso de seguridad",
	})

	// 6) Otorgar de nuevo mientras es válida => conflicto
	{
		st, _ := doReq(t, ts.URL, "POST", "/resources/"+resourceID+"/introductions", tutorID, map[string]any{
			"receiver_user_id": memberID,
		})
		if st != http.StatusConflict {
			t.Fatalf("expected 409 duplicate introduction, got %d", st)
		}
	}

	// 7) El member tiene acceso
	assertAccess(t, ts.URL, memberID, resourceID, true)

	// 8) Revocar: el acceso cae, revocar dos veces es conflicto
	{
		st, body := doReq(t, ts.URL, "POST", "/introductions/"+introID+"/revoke", tutorID, map[string]any{
			"comment": "uso indebido",
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 revoke, got %d body=%s", st, string(body))
		}
	}
	assertAccess(t, ts.URL, memberID, resourceID, false)
	{
		st, _ := doReq(t, ts.URL, "POST", "/introductions/"+introID+"/revoke", tutorID, nil)
		if st != http.StatusConflict {
			t.Fatalf("expected 409 double revoke, got %d", st)
		}
	}

	// 9) Reinstalar vía create: misma fila
	{
		st, body := doReq(t, ts.URL, "POST", "/resources/"+resourceID+"/introductions", tutorID, map[string]any{
			"receiver_user_id": memberID,
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 reinstate, got %d body=%s", st, string(body))
		}
		var resp struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(body, &resp)
		if resp.ID != introID {
			t.Fatalf("expected same introduction row %s, got %s", introID, resp.ID)
		}
	}
	assertAccess(t, ts.URL, memberID, resourceID, true)

	// 10) Historial: exactamente grant, revoke, grant
	{
		st, body := doReq(t, ts.URL, "GET", "/introductions/"+introID+"/history", memberID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 history, got %d body=%s", st, string(body))
		}
		var items []struct {
			Action  string `json:"action"`
			Comment string `json:"comment"`
		}
		_ = json.Unmarshal(body, &items)
		if len(items) != 3 {
			t.Fatalf("expected 3 history items, got %d body=%s", len(items), string(body))
		}
		want := []string{"grant", "revoke", "grant"}
		for i, item := range items {
			if item.Action != want[i] {
				t.Fatalf("item %d: expected %s, got %s", i, want[i], item.Action)
			}
		}
		if items[1].Comment != "uso indebido" {
			t.Fatalf("expected revoke comment preserved, got %q", items[1].Comment)
		}
	}

	// 11) Status derivado
	{
		st, body := doReq(t, ts.URL, "GET", "/introductions/"+introID+"/status", memberID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 status, got %d", st)
		}
		var resp struct {
			Valid bool `json:"valid"`
		}
		_ = json.Unmarshal(body, &resp)
		if !resp.Valid {
			t.Fatalf("expected valid introduction, body=%s", string(body))
		}
	}

	// 12) Un member sin rol no puede otorgar accesos
	{
		st, _ := doReq(t, ts.URL, "POST", "/resources/"+resourceID+"/introductions", memberID, map[string]any{
			"receiver_user_id": tutorID,
		})
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 introduction by member, got %d", st)
		}
	}
}

func TestHTTP_GroupIntroduction_GrantsAccessToMemberResources(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{}))
	defer ts.Close()

	adminID := registerUser(t, ts.URL, "admin", "admin@taller.dev")
	tutorID := registerUser(t, ts.URL, "tutor", "tutor@taller.dev")
	memberID := registerUser(t, ts.URL, "member", "member@taller.dev")

	groupID := createEntity(t, ts.URL, adminID, "/resource-groups", map[string]any{
		"name": "Carpinteria",
	})
	sierraID := createEntity(t, ts.URL, adminID, "/resources", map[string]any{"name": "Sierra"})
	lijadoraID := createEntity(t, ts.URL, adminID, "/resources", map[string]any{"name": "Lijadora"})
	tornoID := createEntity(t, ts.URL, adminID, "/resources", map[string]any{"name": "Torno"})

	for _, resID := range []string{sierraID, lijadoraID} {
		st, _ := doReq(t, ts.URL, "POST", "/resource-groups/"+groupID+"/resources/"+resID, adminID, nil)
		if st != http.StatusNoContent {
			t.Fatalf("expected 204 add to group, got %d", st)
		}
	}

	// rol de introducer sobre el grupo
	{
		st, _ := doReq(t, ts.URL, "POST", "/resource-groups/"+groupID+"/introducers", adminID, map[string]any{
			"user_id": tutorID,
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 group introducer, got %d", st)
		}
	}

	// el status por recurso ve el rol heredado del grupo
	{
		st, body := doReq(t, ts.URL, "GET", "/resources/"+sierraID+"/introducers/"+tutorID, tutorID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 introducer status, got %d", st)
		}
		var status map[string]bool
		if err := json.Unmarshal(body, &status); err != nil {
			t.Fatalf("decode introducer status: %v", err)
		}
		if !status["is_introducer"] {
			t.Fatalf("expected inherited introducer role on %s", sierraID)
		}

		st, body = doReq(t, ts.URL, "GET", "/resources/"+tornoID+"/introducers/"+tutorID, tutorID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 introducer status, got %d", st)
		}
		if err := json.Unmarshal(body, &status); err != nil {
			t.Fatalf("decode introducer status: %v", err)
		}
		if status["is_introducer"] {
			t.Fatalf("torno is outside the group, expected no introducer role")
		}
	}

	// el rol de grupo habilita otorgar sobre un recurso del grupo
	{
		st, body := doReq(t, ts.URL, "POST", "/resources/"+sierraID+"/introductions", tutorID, map[string]any{
			"receiver_user_id": memberID,
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 via inherited role, got %d body=%s", st, string(body))
		}
	}
	assertAccess(t, ts.URL, memberID, sierraID, true)

	// introducción al grupo entero
	{
		st, _ := doReq(t, ts.URL, "POST", "/resource-groups/"+groupID+"/introductions", tutorID, map[string]any{
			"receiver_user_id": memberID,
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 group introduction, got %d", st)
		}
	}
	assertAccess(t, ts.URL, memberID, lijadoraID, true)

	// pero no sobre recursos fuera del grupo
	assertAccess(t, ts.URL, memberID, tornoID, false)
	{
		st, _ := doReq(t, ts.URL, "POST", "/resources/"+tornoID+"/introductions", tutorID, map[string]any{
			"receiver_user_id": memberID,
		})
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 outside group, got %d", st)
		}
	}
}

func TestHTTP_FirstUserIsAdmin_SecondIsNot(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{}))
	defer ts.Close()

	adminID := registerUser(t, ts.URL, "admin", "admin@taller.dev")
	otherID := registerUser(t, ts.URL, "other", "other@taller.dev")

	// el admin puede crear recursos
	st, _ := doReq(t, ts.URL, "POST", "/resources", adminID, map[string]any{"name": "Laser"})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 by first user, got %d", st)
	}

	// el segundo no
	st, _ = doReq(t, ts.URL, "POST", "/resources", otherID, map[string]any{"name": "Laser 2"})
	if st != http.StatusForbidden {
		t.Fatalf("expected 403 by second user, got %d", st)
	}

	// registro duplicado => 409
	st, _ = doReq(t, ts.URL, "POST", "/users", "", map[string]any{
		"username": "ADMIN",
		"email":    "nuevo@taller.dev",
		"password": "12345678",
	})
	if st != http.StatusConflict {
		t.Fatalf("expected 409 duplicate username, got %d", st)
	}
}

// Otorgamientos simultáneos para el mismo (receiver, recurso): exactamente
// uno crea la introducción, el resto choca con el duplicado.
func TestHTTP_ConcurrentGrants_OneWinner(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{}))
	defer ts.Close()

	adminID := registerUser(t, ts.URL, "admin", "admin@taller.dev")
	memberID := registerUser(t, ts.URL, "member", "member@taller.dev")
	resourceID := createEntity(t, ts.URL, adminID, "/resources", map[string]any{
		"name": "Fresadora CNC",
	})

	const n = 16
	payload, _ := json.Marshal(map[string]any{"receiver_user_id": memberID})

	statuses := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, err := http.NewRequest("POST", ts.URL+"/resources/"+resourceID+"/introductions", bytes.NewReader(payload))
			if err != nil {
				statuses <- 0
				return
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Debug-User-ID", adminID)
			res, err := http.DefaultClient.Do(req)
			if err != nil {
				statuses <- 0
				return
			}
			io.Copy(io.Discard, res.Body)
			res.Body.Close()
			statuses <- res.StatusCode
		}()
	}
	wg.Wait()
	close(statuses)

	var created, conflicts, others int
	for st := range statuses {
		switch st {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicts++
		default:
			others++
		}
	}
	if created != 1 || conflicts != n-1 || others != 0 {
		t.Fatalf("expected 1 created / %d conflicts, got created=%d conflicts=%d others=%d", n-1, created, conflicts, others)
	}

	// una sola introducción con un solo item grant
	st, body := doReq(t, ts.URL, "GET", "/users/"+memberID+"/introductions", adminID, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 list introductions, got %d", st)
	}
	var intros []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &intros); err != nil {
		t.Fatalf("decode introductions: %v", err)
	}
	if len(intros) != 1 {
		t.Fatalf("expected exactly one introduction, got %d", len(intros))
	}

	st, body = doReq(t, ts.URL, "GET", "/introductions/"+intros[0].ID+"/history", adminID, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 history, got %d", st)
	}
	var items []struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(body, &items); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(items) != 1 || items[0].Action != "grant" {
		t.Fatalf("expected a single grant item, got %#v", items)
	}
	assertAccess(t, ts.URL, memberID, resourceID, true)
}

func registerUser(t *testing.T, baseURL, username, email string) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/users", "", map[string]any{
		"username": username,
		"email":    email,
		"password": "super-secreta",
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 register %s, got %d body=%s", username, st, string(body))
	}

	var resp struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.ID == "" {
		t.Fatalf("register %s: missing id body=%s", username, string(body))
	}
	return resp.ID
}

func createEntity(t *testing.T, baseURL, userID, path string, payload map[string]any) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", path, userID, payload)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 POST %s, got %d body=%s", path, st, string(body))
	}

	var resp struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.ID == "" {
		t.Fatalf("POST %s: missing id body=%s", path, string(body))
	}
	return resp.ID
}

func assertAccess(t *testing.T, baseURL, userID, resourceID string, want bool) {
	t.Helper()

	st, body := doReq(t, baseURL, "GET", "/me/access/resources/"+resourceID, userID, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 access check, got %d body=%s", st, string(body))
	}
	var resp struct {
		Allowed bool `json:"allowed"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.Allowed != want {
		t.Fatalf("expected allowed=%v for resource %s, got %v", want, resourceID, resp.Allowed)
	}
}

func doReq(t *testing.T, baseURL, method, path, debugUserID string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if debugUserID != "" {
		req.Header.Set("X-Debug-User-ID", debugUserID)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, respBody
}
