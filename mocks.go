package scout

import (
	"time"

	"github.com/stretchr/testify/mock"
)

// MockStore implements the Store interface for testing.
type MockStore struct {
	mock.Mock
}

func (s *MockStore) ActiveDomains() ([]*Domain, error) {
	args := s.Mock.Called()
	return args.Get(0).([]*Domain), args.Error(1)
}

func (s *MockStore) DomainByName(name string) (*Domain, error) {
	args := s.Mock.Called(name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Domain), args.Error(1)
}

func (s *MockStore) AddDomain(d *Domain) error {
	args := s.Mock.Called(d)
	return args.Error(0)
}

func (s *MockStore) TopPagesForDomain(domainID int64, limit int) ([]*Page, error) {
	args := s.Mock.Called(domainID, limit)
	return args.Get(0).([]*Page), args.Error(1)
}

func (s *MockStore) PageByURLHash(hash string) (*Page, error) {
	args := s.Mock.Called(hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Page), args.Error(1)
}

func (s *MockStore) AddPage(p *Page) error {
	args := s.Mock.Called(p)
	return args.Error(0)
}

func (s *MockStore) AddPageScore(pageID int64, delta float64) error {
	args := s.Mock.Called(pageID, delta)
	return args.Error(0)
}

func (s *MockStore) AddToAllPageScores(delta float64) error {
	args := s.Mock.Called(delta)
	return args.Error(0)
}

func (s *MockStore) PageCount() (int, error) {
	args := s.Mock.Called()
	return args.Int(0), args.Error(1)
}

func (s *MockStore) PageCountForDomain(domainID int64) (int, error) {
	args := s.Mock.Called(domainID)
	return args.Int(0), args.Error(1)
}

func (s *MockStore) NextJobsCount() (int, error) {
	args := s.Mock.Called()
	return args.Int(0), args.Error(1)
}

func (s *MockStore) NextJobList(currentPage, pageSize int) ([]*JobListEntry, error) {
	args := s.Mock.Called(currentPage, pageSize)
	return args.Get(0).([]*JobListEntry), args.Error(1)
}

func (s *MockStore) Workers() ([]*Worker, error) {
	args := s.Mock.Called()
	return args.Get(0).([]*Worker), args.Error(1)
}

func (s *MockStore) RegisterWorker(uuid string) error {
	args := s.Mock.Called(uuid)
	return args.Error(0)
}

func (s *MockStore) SetWorkerCurrentURL(uuid, url string) error {
	args := s.Mock.Called(uuid, url)
	return args.Error(0)
}

func (s *MockStore) Limiters() ([]*Limiter, error) {
	args := s.Mock.Called()
	return args.Get(0).([]*Limiter), args.Error(1)
}

func (s *MockStore) UpsertLimiter(url string, value int) error {
	args := s.Mock.Called(url, value)
	return args.Error(0)
}

func (s *MockStore) Settings() (*Settings, error) {
	args := s.Mock.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Settings), args.Error(1)
}

func (s *MockStore) ConsumeLambdaScore(expected float64) (bool, error) {
	args := s.Mock.Called(expected)
	return args.Bool(0), args.Error(1)
}

// MockCache implements the Cache interface for testing.
type MockCache struct {
	mock.Mock
}

func (c *MockCache) TryLock(url string, ttl time.Duration) (string, error) {
	args := c.Mock.Called(url, ttl)
	return args.String(0), args.Error(1)
}

func (c *MockCache) ReleaseLock(url, token string) error {
	args := c.Mock.Called(url, token)
	return args.Error(0)
}

func (c *MockCache) IncrementPageCount(domain string) error {
	args := c.Mock.Called(domain)
	return args.Error(0)
}

func (c *MockCache) IncrementNextJobsCount() error {
	args := c.Mock.Called()
	return args.Error(0)
}

func (c *MockCache) PageCount(domain string) (int64, error) {
	args := c.Mock.Called(domain)
	return args.Get(0).(int64), args.Error(1)
}

// MockFetcher implements the Fetcher interface for testing.
type MockFetcher struct {
	mock.Mock
}

func (f *MockFetcher) Fetch(url string) (*FetchResponse, error) {
	args := f.Mock.Called(url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*FetchResponse), args.Error(1)
}

// MockPublisher implements the Publisher interface for testing. It also
// keeps the published payloads for inspection.
type MockPublisher struct {
	mock.Mock

	Messages [][]byte
}

func (p *MockPublisher) Publish(message []byte) error {
	p.Messages = append(p.Messages, message)
	args := p.Mock.Called(message)
	return args.Error(0)
}
