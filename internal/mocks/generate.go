package mocks

//go:generate mockery --name StatsCacheStore --srcpkg github.com/smart-student/stats-engine/internal/aggregation --output ./aggregation --outpkg aggregationmocks --with-expecter
