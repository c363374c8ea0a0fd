package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/promptarena/verdict/internal/adapters/http/api"
	"github.com/promptarena/verdict/internal/adapters/repository"
	service "github.com/promptarena/verdict/internal/app"
	"github.com/promptarena/verdict/internal/domain/model"
	"github.com/promptarena/verdict/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const testToken = "test-superadmin-token"

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// scriptedEvaluation satisfies the gate's evaluation dependency without a
// second HTTP server.
type scriptedEvaluation struct {
	status string
}

func (f *scriptedEvaluation) Status(ctx context.Context, competitionID string) (string, error) {
	return f.status, nil
}

func (f *scriptedEvaluation) GenerateLeaderboard(ctx context.Context, competitionID string) error {
	return nil
}

func newTestServer(t *testing.T, opts ...api.ServerOption) (*httptest.Server, *repository.MemoryStore) {
	t.Helper()

	store := repository.NewMemoryStore()
	store.PutCompetition(&model.Competition{ID: "comp-1", Name: "Prompt Cup", TopN: 10})
	store.PutRanking("comp-1", []model.LeaderboardEntry{
		{ParticipantID: "alice", Rank: 1, TotalScore: 95},
		{ParticipantID: "bob", Rank: 2, TotalScore: 88},
	})
	store.PutSubmissions("comp-1", []model.Submission{
		{ParticipantID: "alice", ChallengeID: "ch1", Status: model.SubmissionSubmitted},
		{ParticipantID: "alice", ChallengeID: "ch2", Status: model.SubmissionSubmitted},
		{ParticipantID: "bob", ChallengeID: "ch1", Status: model.SubmissionSubmitted},
	})

	svc := service.New(
		service.WithStore(store),
		service.WithEvaluationService(&scriptedEvaluation{status: "completed"}),
	)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(svc.Stop)

	serverOpts := append([]api.ServerOption{api.WithSuperadminToken(testToken)}, opts...)
	mux := http.NewServeMux()
	api.NewServer(svc, svc, serverOpts...).Register(context.Background(), mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, store
}

func do(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	Convey("Given the privileged competition route", t, func() {
		url := srv.URL + "/competitions/comp-1"

		Convey("A request without a bearer token is unauthorized", func() {
			resp, _ := do(t, http.MethodGet, url, "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("A request with the wrong token is forbidden", func() {
			resp, _ := do(t, http.MethodGet, url, "wrong-token", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusForbidden)
		})

		Convey("A request with the right token passes", func() {
			resp, body := do(t, http.MethodGet, url, testToken, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(body["id"], ShouldEqual, "comp-1")
			So(body["name"], ShouldEqual, "Prompt Cup")
		})
	})

	Convey("The health and stats routes stay open", t, func() {
		resp, err := http.Get(srv.URL + "/healthz")
		So(err, ShouldBeNil)
		resp.Body.Close()
		So(resp.StatusCode, ShouldEqual, http.StatusOK)

		resp, err = http.Get(srv.URL + "/stats")
		So(err, ShouldBeNil)
		resp.Body.Close()
		So(resp.StatusCode, ShouldEqual, http.StatusOK)
	})
}

func TestAuthLockedWithoutToken(t *testing.T) {
	srv, _ := newTestServer(t, api.WithSuperadminToken(""))

	Convey("Given a server started without a superadmin token", t, func() {
		Convey("Then privileged routes refuse every bearer token", func() {
			resp, _ := do(t, http.MethodGet, srv.URL+"/competitions/comp-1", "anything", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusForbidden)
		})
	})
}

func TestCompetitionRoutes(t *testing.T) {
	srv, _ := newTestServer(t)

	Convey("Given the competition surface", t, func() {
		Convey("An unknown competition is a 404", func() {
			resp, _ := do(t, http.MethodGet, srv.URL+"/competitions/ghost", testToken, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("The distribution config round-trips", func() {
			resp, _ := do(t, http.MethodPut, srv.URL+"/competitions/comp-1/distribution-config", testToken,
				map[string]any{"top_n": 25, "max_per_judge": 40})
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			resp, body := do(t, http.MethodGet, srv.URL+"/competitions/comp-1", testToken, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(body["top_n"], ShouldEqual, 25)
			So(body["max_per_judge"], ShouldEqual, 40)
		})

		Convey("A non-positive config value fails validation", func() {
			resp, _ := do(t, http.MethodPut, srv.URL+"/competitions/comp-1/distribution-config", testToken,
				map[string]any{"top_n": 0, "max_per_judge": 40})
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestPoolRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	Convey("Given the pool route", t, func() {
		Convey("The pool returns ranked participants and sorted buckets", func() {
			resp, body := do(t, http.MethodGet, srv.URL+"/competitions/comp-1/pool?top_n=2", testToken, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(body["submissions_total"], ShouldEqual, 3)

			participants := body["participant_ids"].([]any)
			So(participants, ShouldResemble, []any{"alice", "bob"})
		})

		Convey("A missing or bad top_n is a 400", func() {
			resp, _ := do(t, http.MethodGet, srv.URL+"/competitions/comp-1/pool", testToken, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)

			resp, _ = do(t, http.MethodGet, srv.URL+"/competitions/comp-1/pool?top_n=zero", testToken, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestDistributionFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	Convey("Given a distribute request sliced from the pool", t, func() {
		resp, body := do(t, http.MethodPost, srv.URL+"/competitions/comp-1/distribute", testToken,
			map[string]any{
				"matrix": map[string]map[string]int{
					"ch1": {"judgeA": 1, "judgeB": 1},
					"ch2": {"judgeA": 1},
				},
				"use_pool_top_n": 2,
			})

		Convey("Then the run is created with full counts", func() {
			So(resp.StatusCode, ShouldEqual, http.StatusCreated)
			So(body["requested_count"], ShouldEqual, 3)
			So(body["assigned_count"], ShouldEqual, 3)
			So(body["judges_written"], ShouldEqual, 2)
		})

		Convey("And the matrix route reflects the persisted counts", func() {
			resp, body := do(t, http.MethodGet, srv.URL+"/competitions/comp-1/matrix", testToken, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			matrix := body["matrix"].(map[string]any)
			ch1 := matrix["ch1"].(map[string]any)
			So(ch1["judgeA"], ShouldEqual, 1)
			So(ch1["judgeB"], ShouldEqual, 1)
		})

		Convey("And progress reports the new assignments incomplete", func() {
			resp, body := do(t, http.MethodGet, srv.URL+"/competitions/comp-1/progress", testToken, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(body["has_judges"], ShouldEqual, true)
			So(body["all_completed"], ShouldEqual, false)
		})
	})

	Convey("A request without a matrix is a 400", t, func() {
		resp, _ := do(t, http.MethodPost, srv.URL+"/competitions/comp-1/distribute", testToken,
			map[string]any{"use_pool_top_n": 2})
		So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
	})

	Convey("A negative count in the matrix is a 400", t, func() {
		resp, _ := do(t, http.MethodPost, srv.URL+"/competitions/comp-1/distribute", testToken,
			map[string]any{"matrix": map[string]map[string]int{"ch1": {"judgeA": -2}}})
		So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
	})
}

func TestReviewRoute(t *testing.T) {
	Convey("Given an assigned judge", t, func() {
		srv, _ := newTestServer(t)
		resp, _ := do(t, http.MethodPost, srv.URL+"/competitions/comp-1/distribute", testToken,
			map[string]any{
				"matrix":         map[string]map[string]int{"ch1": {"judgeA": 1}},
				"use_pool_top_n": 2,
			})
		So(resp.StatusCode, ShouldEqual, http.StatusCreated)

		Convey("Recording a review succeeds", func() {
			resp, _ := do(t, http.MethodPost, srv.URL+"/competitions/comp-1/reviews", testToken,
				map[string]any{"judge_id": "judgeA", "challenge_id": "ch1"})
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			Convey("And recording past the assignment is a 409", func() {
				resp, _ := do(t, http.MethodPost, srv.URL+"/competitions/comp-1/reviews", testToken,
					map[string]any{"judge_id": "judgeA", "challenge_id": "ch1"})
				So(resp.StatusCode, ShouldEqual, http.StatusConflict)
			})
		})

		Convey("An unassigned judge is a 404", func() {
			resp, _ := do(t, http.MethodPost, srv.URL+"/competitions/comp-1/reviews", testToken,
				map[string]any{"judge_id": "ghost", "challenge_id": "ch1"})
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("A body without ids is a 400", func() {
			resp, _ := do(t, http.MethodPost, srv.URL+"/competitions/comp-1/reviews", testToken,
				map[string]any{"judge_id": "judgeA"})
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestGenerateRoute(t *testing.T) {
	Convey("Given a competition whose judges are incomplete", t, func() {
		srv, _ := newTestServer(t)
		resp, _ := do(t, http.MethodPost, srv.URL+"/competitions/comp-1/distribute", testToken,
			map[string]any{
				"matrix":         map[string]map[string]int{"ch1": {"judgeA": 2}},
				"use_pool_top_n": 2,
			})
		So(resp.StatusCode, ShouldEqual, http.StatusCreated)

		Convey("Then generation is refused with a 409 and the state named", func() {
			resp, body := do(t, http.MethodPost, srv.URL+"/competitions/comp-1/generate-leaderboard", testToken, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusConflict)
			So(body["state"], ShouldEqual, "JUDGES_INCOMPLETE")
		})

		Convey("When the judge finishes both reviews", func() {
			for i := 0; i < 2; i++ {
				resp, _ := do(t, http.MethodPost, srv.URL+"/competitions/comp-1/reviews", testToken,
					map[string]any{"judge_id": "judgeA", "challenge_id": "ch1"})
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
			}

			Convey("Then generation succeeds", func() {
				resp, body := do(t, http.MethodPost, srv.URL+"/competitions/comp-1/generate-leaderboard", testToken, nil)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["state"], ShouldEqual, "GENERATED")

				Convey("And a repeat needs the regenerate confirmation", func() {
					resp, body := do(t, http.MethodPost, srv.URL+"/competitions/comp-1/generate-leaderboard", testToken, nil)
					So(resp.StatusCode, ShouldEqual, http.StatusConflict)
					So(body["state"], ShouldEqual, "ALREADY_GENERATED")

					resp, body = do(t, http.MethodPost, srv.URL+"/competitions/comp-1/generate-leaderboard", testToken,
						map[string]any{"confirm_regenerate": true})
					So(resp.StatusCode, ShouldEqual, http.StatusOK)
					So(body["state"], ShouldEqual, "GENERATED")
				})
			})
		})
	})

	Convey("Given a competition with no judges at all", t, func() {
		srv, _ := newTestServer(t)

		Convey("Then the refusal names the empty judge pool", func() {
			resp, body := do(t, http.MethodPost, srv.URL+"/competitions/comp-1/generate-leaderboard", testToken, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusConflict)
			So(body["state"], ShouldEqual, "NO_JUDGES_ASSIGNED")
		})

		Convey("And the explicit override proceeds", func() {
			resp, body := do(t, http.MethodPost, srv.URL+"/competitions/comp-1/generate-leaderboard", testToken,
				map[string]any{"allow_no_judges": true})
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(body["state"], ShouldEqual, "GENERATED")
		})
	})
}

func TestRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, api.WithRateLimit(0.01, 1))

	Convey("Given a one-request bucket", t, func() {
		resp, err := http.Get(srv.URL + "/healthz")
		So(err, ShouldBeNil)
		resp.Body.Close()
		So(resp.StatusCode, ShouldEqual, http.StatusOK)

		Convey("Then the immediate follow-up is rejected", func() {
			resp, err := http.Get(srv.URL + "/healthz")
			So(err, ShouldBeNil)
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusTooManyRequests)
		})
	})
}
